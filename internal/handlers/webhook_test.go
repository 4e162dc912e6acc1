package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWebhookKey = "3Wc5Zfq0x7yB2nKp9LrT4sVh6JdQ8mAe"

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte(testWebhookKey))

// signWebhook produces svix-style signature headers for payload
func signWebhook(t *testing.T, payload []byte) http.Header {
	t.Helper()

	msgID := "msg_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testWebhookKey))
	_, err := fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, payload)
	require.NoError(t, err)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("svix-id", msgID)
	headers.Set("svix-timestamp", timestamp)
	headers.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return headers
}
