package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

const sentJSON = `[
  {"id": "1", "subject": "Project update", "body": "Hi team,\n\nThe release is on track for Friday. Please review the notes.\n\nBest regards,\nSam", "received": "How is the release going?"},
  {"id": 2, "subject": "Lunch", "body": "Sounds great, see you at noon!\n\nCheers", "received": "Lunch tomorrow?"},
  {"id": "3", "subject": "Empty", "body": ""}
]`

func writeSentFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sent.json")
	require.NoError(t, os.WriteFile(path, []byte(sentJSON), 0o600))
	return path
}

func TestIngestCmd_Flags(t *testing.T) {
	for _, name := range []string{"file", "eml-dir", "gmail", "query", "max", "json", "credentials", "token"} {
		assert.NotNil(t, ingestCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "f", ingestCmd.Flags().Lookup("file").Shorthand)
}

func TestIngestCmd_RequiresSource(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "", "ingest")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestCmd_FromJSONFile(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "", "ingest", "--file", writeSentFile(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 of 3 emails (1 skipped)")
	assert.Contains(t, out, "Run: ")

	out, err = execute(t, "", "status", "--json")
	require.NoError(t, err)
	var status domain.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.Count)
	assert.True(t, status.ProfilePresent)
	assert.Equal(t, "sqlite", status.Backend)
}

func TestIngestCmd_FromStdinAsJSON(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, sentJSON, "ingest", "--file", "-", "--json")
	require.NoError(t, err)

	var report domain.IngestReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Received)
	assert.Equal(t, 2, report.Indexed)
	assert.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Profile)
	assert.Equal(t, 3, report.Profile.EmailCount)
}

func TestIngestCmd_ReingestReplaces(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()
	path := writeSentFile(t)

	_, err := execute(t, "", "ingest", "--file", path)
	require.NoError(t, err)
	_, err = execute(t, "", "ingest", "--file", path)
	require.NoError(t, err)

	out, err := execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed emails:  2")
}

func TestIngestCmd_InvalidJSON(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "{not json", "ingest", "--file", "-")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestCmd_FromEmlDir(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	dir := t.TempDir()
	raw := "Message-ID: <a1@example.com>\r\n" +
		"From: Sam <sam@example.com>\r\n" +
		"To: Kim <kim@example.com>\r\n" +
		"Subject: Re: Budget\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Thanks, approved.\r\n" +
		"\r\n" +
		"On Mon, Jan 2, 2006 at 9:00 AM Kim <kim@example.com> wrote:\r\n" +
		"> Can you approve the budget?\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"), []byte(raw), 0o600))

	out, err := execute(t, "", "ingest", "--eml-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 of 1 emails")
}

func TestIngestCmd_GmailWithoutToken(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"secret",`+
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",`+
		`"redirect_uris":["http://localhost"]}}`), 0o600))

	_, err := execute(t, "", "ingest", "--gmail", "--credentials", creds, "--token", filepath.Join(dir, "token.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailmind gmail auth")
}
