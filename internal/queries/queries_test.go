package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/freelance-crm-api/internal/cache"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func strPtr(s string) *string { return &s }

type QueriesTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *fixedClock
	backend *fakeBackend
	cache   *cache.Cache
	q       *Queries
}

func (suite *QueriesTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.clock = &fixedClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	suite.backend = newFakeBackend()

	base := suite.backend.now
	suite.backend.clients = []dto.ClientDTO{
		{ID: "c1", Name: "Acme", Status: models.ClientStatusActive, Tags: []string{}, UpdatedAt: base.Add(-time.Hour)},
		{ID: "c2", Name: "Globex", Status: models.ClientStatusArchived, Tags: []string{}, UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "c3", Name: "Initech", Status: models.ClientStatusActive, Tags: []string{}, UpdatedAt: base.Add(-3 * time.Hour)},
	}
	suite.backend.projects = []dto.ProjectDTO{
		{ID: "p1", ClientID: "c1", Name: "Website", Status: models.ProjectStatusActive},
		{ID: "p2", ClientID: "c1", Name: "Logo", Status: models.ProjectStatusProposal},
		{ID: "p3", ClientID: "c3", Name: "Audit", Status: models.ProjectStatusActive},
	}
	suite.backend.communications = []dto.CommunicationDTO{
		{ID: "m1", ClientID: "c1", ProjectID: strPtr("p1"), Subject: "Kickoff", SentAt: base.Add(-48 * time.Hour)},
		{ID: "m2", ClientID: "c1", Subject: "Invoice", SentAt: base.Add(-24 * time.Hour)},
	}

	suite.cache = cache.New(cache.Options{StaleTime: time.Minute, GCTime: 5 * time.Minute, Clock: suite.clock})
	suite.q = New(suite.cache, suite.backend, suite.backend, suite.backend)
}

func (suite *QueriesTestSuite) TestClient_ServedFromCachedList() {
	list, err := suite.q.Clients(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Len(list, 2)
	suite.Equal(1, suite.backend.clientLists)

	client, err := suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.Equal("Initech", client.Name)

	_, err = suite.q.Clients(suite.ctx, "active")
	suite.Require().NoError(err)
	suite.Equal(1, suite.backend.clientLists)
	suite.Equal(0, suite.backend.clientGets)
}

func (suite *QueriesTestSuite) TestClient_FallsBackToFullListOnce() {
	_, err := suite.q.Clients(suite.ctx, "ACTIVE")
	suite.Require().NoError(err)

	client, err := suite.q.Client(suite.ctx, "c2")
	suite.Require().NoError(err)
	suite.Equal(models.ClientStatusArchived, client.Status)
	suite.Equal(2, suite.backend.clientLists)

	_, err = suite.q.Client(suite.ctx, "c2")
	suite.Require().NoError(err)
	suite.Equal(2, suite.backend.clientLists)
}

func (suite *QueriesTestSuite) TestClient_RevalidatesAfterStaleTime() {
	_, err := suite.q.Clients(suite.ctx, "ALL")
	suite.Require().NoError(err)
	client, err := suite.q.Client(suite.ctx, "c1")
	suite.Require().NoError(err)
	suite.Equal("Acme", client.Name)
	suite.Equal(0, suite.backend.clientGets)

	suite.backend.clients[0].Name = "Acme Corp"
	suite.clock.now = suite.clock.now.Add(2 * time.Minute)

	client, err = suite.q.Client(suite.ctx, "c1")
	suite.Require().NoError(err)
	suite.Equal("Acme", client.Name, "stale value is served while revalidating")
	suite.cache.Wait()
	suite.Equal(1, suite.backend.clientGets)

	client, err = suite.q.Client(suite.ctx, "c1")
	suite.Require().NoError(err)
	suite.Equal("Acme Corp", client.Name)
	suite.Equal(1, suite.backend.clientGets)
}

func (suite *QueriesTestSuite) TestClient_StaleListSeedsStaleDetail() {
	_, err := suite.q.Clients(suite.ctx, "ALL")
	suite.Require().NoError(err)
	suite.backend.clients[2].Name = "Initech Ltd"
	suite.clock.now = suite.clock.now.Add(2 * time.Minute)

	client, err := suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.Equal("Initech", client.Name)
	suite.cache.Wait()
	suite.Equal(1, suite.backend.clientGets)

	detail, ok := cache.GetAs[dto.ClientDTO](suite.cache, ClientKey("c3"))
	suite.Require().True(ok)
	suite.Equal("Initech Ltd", detail.Name)
}

func (suite *QueriesTestSuite) TestClient_InvalidatedByCommunicationIsRefetched() {
	client, err := suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.True(client.LastContact.IsZero())

	sentAt := suite.backend.now.Add(-time.Hour)
	_, err = suite.q.CreateCommunication(suite.ctx, services.CreateCommunicationInput{
		ClientID: "c3",
		Type:     "EMAIL",
		Subject:  "Audit scope",
		Content:  "Draft attached",
		SentAt:   &sentAt,
	})
	suite.Require().NoError(err)
	suite.True(suite.cache.State(ClientKey("c3")).Invalidated)

	_, err = suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.cache.Wait()
	suite.Equal(1, suite.backend.clientGets)

	client, err = suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.True(sentAt.Equal(client.LastContact))
	suite.False(suite.cache.State(ClientKey("c3")).Invalidated)
}

func (suite *QueriesTestSuite) TestClient_Unknown() {
	_, err := suite.q.Client(suite.ctx, "missing")
	suite.ErrorIs(err, services.ErrClientNotFound)
	suite.Equal(apierrors.KindNotFound, Reason(err))
}

func (suite *QueriesTestSuite) TestClients_InvalidFilter() {
	_, err := suite.q.Clients(suite.ctx, "sometimes")
	suite.Equal(apierrors.KindValidation, Reason(err))
	suite.Equal(0, suite.backend.clientLists)
}

func (suite *QueriesTestSuite) TestUpdateClient_ReflectedInEveryEntry() {
	_, err := suite.q.Clients(suite.ctx, "ACTIVE")
	suite.Require().NoError(err)
	_, err = suite.q.Clients(suite.ctx, "ALL")
	suite.Require().NoError(err)
	_, err = suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	lists := suite.backend.clientLists

	_, err = suite.q.UpdateClient(suite.ctx, "c3", services.UpdateClientInput{Name: strPtr("Initech Ltd")})
	suite.Require().NoError(err)

	for _, filter := range []string{"ACTIVE", "ALL"} {
		items, ok := cache.GetAs[[]dto.ClientDTO](suite.cache, ClientListKey(filter))
		suite.Require().True(ok)
		suite.Equal("c3", items[0].ID, filter)
		suite.Equal("Initech Ltd", items[0].Name, filter)
	}
	detail, err := suite.q.Client(suite.ctx, "c3")
	suite.Require().NoError(err)
	suite.Equal("Initech Ltd", detail.Name)
	suite.Equal(lists, suite.backend.clientLists)
}

func (suite *QueriesTestSuite) TestArchiveClient_MovesBetweenLists() {
	_, err := suite.q.Clients(suite.ctx, "ACTIVE")
	suite.Require().NoError(err)
	_, err = suite.q.Clients(suite.ctx, "ARCHIVED")
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c1")
	suite.Require().NoError(err)
	_, err = suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)

	_, err = suite.q.ArchiveClient(suite.ctx, "c1")
	suite.Require().NoError(err)

	active, _ := cache.GetAs[[]dto.ClientDTO](suite.cache, ClientListKey("ACTIVE"))
	suite.Len(active, 1)
	suite.Equal("c3", active[0].ID)

	archived, _ := cache.GetAs[[]dto.ClientDTO](suite.cache, ClientListKey("ARCHIVED"))
	suite.Require().Len(archived, 2)
	suite.Equal("c1", archived[0].ID)

	_, ok := suite.cache.Get(ClientProjectsKey("c1"))
	suite.False(ok)
	_, ok = suite.cache.Get(ClientCommunicationsKey("c1"))
	suite.False(ok)

	_, err = suite.q.UnarchiveClient(suite.ctx, "c1")
	suite.Require().NoError(err)
	active, _ = cache.GetAs[[]dto.ClientDTO](suite.cache, ClientListKey("ACTIVE"))
	suite.Equal("c1", active[0].ID)
}

func (suite *QueriesTestSuite) TestFailedMutation_LeavesCacheUntouched() {
	before, err := suite.q.Clients(suite.ctx, "ACTIVE")
	suite.Require().NoError(err)

	suite.backend.fail = apierrors.NewValidationError("name", "is required")
	_, err = suite.q.UpdateClient(suite.ctx, "c1", services.UpdateClientInput{Name: strPtr("")})
	suite.Equal(apierrors.KindValidation, Reason(err))

	after, ok := cache.GetAs[[]dto.ClientDTO](suite.cache, ClientListKey("ACTIVE"))
	suite.Require().True(ok)
	suite.Equal(before, after)
	suite.False(suite.cache.State(ClientListKey("ACTIVE")).Invalidated)

	suite.backend.fail = errors.New("connection reset")
	err = suite.q.DeleteProject(suite.ctx, "p1")
	suite.Equal(apierrors.KindUnknown, Reason(err))
}

func (suite *QueriesTestSuite) TestCreateProject_AddsToMatchingLists() {
	_, err := suite.q.Projects(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c1")
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c3")
	suite.Require().NoError(err)

	created, err := suite.q.CreateProject(suite.ctx, services.ProjectInput{Name: "App", ClientID: "c3"})
	suite.Require().NoError(err)

	all, _ := cache.GetAs[[]dto.ProjectDTO](suite.cache, ProjectListKey())
	suite.Len(all, 4)
	suite.Equal(created.ID, all[0].ID)

	c3, _ := cache.GetAs[[]dto.ProjectDTO](suite.cache, ClientProjectsKey("c3"))
	suite.Len(c3, 2)
	c1, _ := cache.GetAs[[]dto.ProjectDTO](suite.cache, ClientProjectsKey("c1"))
	suite.Len(c1, 2)

	project, err := suite.q.Project(suite.ctx, created.ID)
	suite.Require().NoError(err)
	suite.Equal("App", project.Name)
}

func (suite *QueriesTestSuite) TestProject_RevalidatesAfterStaleTime() {
	_, err := suite.q.Projects(suite.ctx)
	suite.Require().NoError(err)
	project, err := suite.q.Project(suite.ctx, "p3")
	suite.Require().NoError(err)
	suite.Equal("Audit", project.Name)
	suite.Equal(0, suite.backend.projectGets)

	suite.backend.projects[2].Name = "Security audit"
	suite.clock.now = suite.clock.now.Add(2 * time.Minute)

	project, err = suite.q.Project(suite.ctx, "p3")
	suite.Require().NoError(err)
	suite.Equal("Audit", project.Name)
	suite.cache.Wait()
	suite.Equal(1, suite.backend.projectGets)

	project, err = suite.q.Project(suite.ctx, "p3")
	suite.Require().NoError(err)
	suite.Equal("Security audit", project.Name)
	suite.Equal(1, suite.backend.projectLists)
}

func (suite *QueriesTestSuite) TestUpdateProject_MovesBetweenClients() {
	_, err := suite.q.ClientProjects(suite.ctx, "c1")
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c3")
	suite.Require().NoError(err)

	_, err = suite.q.UpdateProject(suite.ctx, "p2", services.ProjectInput{Name: "Logo", ClientID: "c3"})
	suite.Require().NoError(err)

	c1, _ := cache.GetAs[[]dto.ProjectDTO](suite.cache, ClientProjectsKey("c1"))
	suite.Len(c1, 1)
	c3, _ := cache.GetAs[[]dto.ProjectDTO](suite.cache, ClientProjectsKey("c3"))
	suite.Require().Len(c3, 2)
	suite.Equal("p2", c3[0].ID)
}

func (suite *QueriesTestSuite) TestDeleteProject_ClearsClientCaches() {
	_, err := suite.q.Projects(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c1")
	suite.Require().NoError(err)
	_, err = suite.q.ClientProjects(suite.ctx, "c3")
	suite.Require().NoError(err)
	_, err = suite.q.Communication(suite.ctx, "m1")
	suite.Require().NoError(err)
	suite.Equal(1, suite.backend.commGets)
	_, err = suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)
	lists := suite.backend.projectLists

	suite.Require().NoError(suite.q.DeleteProject(suite.ctx, "p1"))

	all, ok := cache.GetAs[[]dto.ProjectDTO](suite.cache, ProjectListKey())
	suite.Require().True(ok)
	suite.Len(all, 2)

	_, ok = suite.cache.Get(ClientProjectsKey("c1"))
	suite.False(ok)
	_, ok = suite.cache.Get(ClientCommunicationsKey("c1"))
	suite.False(ok)
	_, ok = suite.cache.Get(ProjectKey("p1"))
	suite.False(ok)
	_, ok = suite.cache.Get(CommunicationKey("m1"))
	suite.False(ok)

	_, ok = suite.cache.Get(ClientProjectsKey("c3"))
	suite.True(ok, "other clients keep their lists")

	_, err = suite.q.Project(suite.ctx, "p1")
	suite.ErrorIs(err, services.ErrProjectNotFound)
	suite.Equal(lists, suite.backend.projectLists)

	projects, err := suite.q.ClientProjects(suite.ctx, "c1")
	suite.Require().NoError(err)
	suite.Len(projects, 1)
	suite.Equal(lists+1, suite.backend.projectLists)
}

func (suite *QueriesTestSuite) TestCommunication_CacheFirst() {
	_, err := suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)

	comm, err := suite.q.Communication(suite.ctx, "m2")
	suite.Require().NoError(err)
	suite.Equal("Invoice", comm.Subject)
	suite.Equal(0, suite.backend.commGets)

	_, err = suite.q.Communication(suite.ctx, "nope")
	suite.ErrorIs(err, services.ErrCommunicationNotFound)
	suite.Equal(1, suite.backend.commGets)
}

func (suite *QueriesTestSuite) TestCommunication_RevalidatesAfterStaleTime() {
	_, err := suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)
	_, err = suite.q.Communication(suite.ctx, "m1")
	suite.Require().NoError(err)

	suite.backend.communications[0].Subject = "Kickoff (moved)"
	suite.clock.now = suite.clock.now.Add(2 * time.Minute)

	comm, err := suite.q.Communication(suite.ctx, "m1")
	suite.Require().NoError(err)
	suite.Equal("Kickoff", comm.Subject)
	suite.cache.Wait()
	suite.Equal(1, suite.backend.commGets)

	comm, err = suite.q.Communication(suite.ctx, "m1")
	suite.Require().NoError(err)
	suite.Equal("Kickoff (moved)", comm.Subject)
}

func (suite *QueriesTestSuite) TestCreateCommunication_KeepsOrderAndInvalidatesDerived() {
	_, err := suite.q.Clients(suite.ctx, "ACTIVE")
	suite.Require().NoError(err)
	_, err = suite.q.Projects(suite.ctx)
	suite.Require().NoError(err)
	_, err = suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)

	sentAt := suite.backend.now.Add(-36 * time.Hour)
	created, err := suite.q.CreateCommunication(suite.ctx, services.CreateCommunicationInput{
		ClientID: "c1",
		Type:     "CALL",
		Subject:  "Check-in",
		Content:  "Quick call",
		SentAt:   &sentAt,
	})
	suite.Require().NoError(err)

	comms, _ := cache.GetAs[[]dto.CommunicationDTO](suite.cache, ClientCommunicationsKey("c1"))
	suite.Require().Len(comms, 3)
	suite.Equal([]string{"m2", created.ID, "m1"}, []string{comms[0].ID, comms[1].ID, comms[2].ID})

	suite.True(suite.cache.State(ClientListKey("ACTIVE")).Invalidated)
	suite.True(suite.cache.State(ProjectListKey()).Invalidated)
}

func (suite *QueriesTestSuite) TestUpdateAndDeleteCommunication() {
	_, err := suite.q.ClientCommunications(suite.ctx, "c1")
	suite.Require().NoError(err)

	latest := suite.backend.now
	_, err = suite.q.UpdateCommunication(suite.ctx, "m1", services.UpdateCommunicationInput{
		Type:    "EMAIL",
		Subject: "Kickoff notes",
		Content: "Revised",
		SentAt:  &latest,
	})
	suite.Require().NoError(err)

	comms, _ := cache.GetAs[[]dto.CommunicationDTO](suite.cache, ClientCommunicationsKey("c1"))
	suite.Require().Len(comms, 2)
	suite.Equal("m1", comms[0].ID)
	suite.Equal("Kickoff notes", comms[0].Subject)

	suite.Require().NoError(suite.q.DeleteCommunication(suite.ctx, "m1"))
	comms, _ = cache.GetAs[[]dto.CommunicationDTO](suite.cache, ClientCommunicationsKey("c1"))
	suite.Len(comms, 1)
	_, ok := suite.cache.Get(CommunicationKey("m1"))
	suite.False(ok)
	suite.Equal(1, suite.backend.commLists)
}

func TestQueriesTestSuite(t *testing.T) {
	suite.Run(t, new(QueriesTestSuite))
}
