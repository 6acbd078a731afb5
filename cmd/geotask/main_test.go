package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/geotask/internal/queue"
)

func runCLI(t *testing.T, stdin string, args ...string) string {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append([]string{"geotask", "--no-log"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	return stdout.String()
}

func TestCreateProcessAndStatus(t *testing.T) {
	require := require.New(t)
	dbPath := filepath.Join(t.TempDir(), "geotask.db")

	// Regions have no parent resource to check.
	out := runCLI(t, `[{"name":"north","groupId":"g1"},{"name":"south","groupId":"g1"},{"name":"","groupId":"g1"}]`,
		"--db-path", dbPath, "task", "create", "--kind", "region", "--action", "create", "--email", "ops@example.com", "--batch-size", "2")

	var event queue.Event
	require.NoError(json.Unmarshal([]byte(out), &event))
	require.Len(event.Records, 2)

	var body struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(json.Unmarshal([]byte(event.Records[0].Body), &body))
	require.NotEmpty(body.TaskID)

	out = runCLI(t, out, "--db-path", dbPath, "process")
	var resp queue.BatchResponse
	require.NoError(json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.BatchItemFailures)

	out = runCLI(t, "", "--db-path", dbPath, "task", "status", body.TaskID, "--format", "json")
	var status struct {
		Status         string `json:"status"`
		ItemsTotal     int    `json:"items_total"`
		ItemsSucceeded int    `json:"items_succeeded"`
		ItemsFailed    int    `json:"items_failed"`
		Items          []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"items"`
	}
	require.NoError(json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "doneWithFailures", status.Status)
	assert.Equal(t, 3, status.ItemsTotal)
	assert.Equal(t, 2, status.ItemsSucceeded)
	assert.Equal(t, 1, status.ItemsFailed)
	require.Len(status.Items, 3)
	assert.Equal(t, "north", status.Items[0].Name)
	assert.Equal(t, "failure", status.Items[2].Status)
}

func TestInvalidCommandFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), []string{"geotask", "does-not-exist"}, strings.NewReader(""), &stdout, &stderr)
	assert.Error(t, err)
}

func TestProcessMalformedItemFailsOnlyThatItem(t *testing.T) {
	require := require.New(t)
	dbPath := filepath.Join(t.TempDir(), "geotask.db")

	out := runCLI(t, `[{"name":"north","groupId":"g1"},{"name":"south","groupId":"g2"}]`,
		"--db-path", dbPath, "task", "create", "--kind", "region", "--action", "create", "--email", "ops@example.com")

	var event queue.Event
	require.NoError(json.Unmarshal([]byte(out), &event))
	require.Len(event.Records, 1)
	event.Records[0].Body = strings.Replace(event.Records[0].Body, `"groupId":"g2"`, `"groupId":7`, 1)
	in, err := json.Marshal(event)
	require.NoError(err)

	var body struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(json.Unmarshal([]byte(event.Records[0].Body), &body))

	out = runCLI(t, string(in), "--db-path", dbPath, "process")
	var resp queue.BatchResponse
	require.NoError(json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.BatchItemFailures)

	out = runCLI(t, "", "--db-path", dbPath, "task", "status", body.TaskID, "--format", "json")
	var status struct {
		Status         string `json:"status"`
		ItemsSucceeded int    `json:"items_succeeded"`
		ItemsFailed    int    `json:"items_failed"`
		Items          []struct {
			Name          string `json:"name"`
			Status        string `json:"status"`
			StatusMessage string `json:"status_message"`
		} `json:"items"`
	}
	require.NoError(json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "doneWithFailures", status.Status)
	assert.Equal(t, 1, status.ItemsSucceeded)
	assert.Equal(t, 1, status.ItemsFailed)
	require.Len(status.Items, 2)
	assert.Equal(t, "south", status.Items[1].Name)
	assert.Equal(t, "failure", status.Items[1].Status)
	assert.Contains(t, status.Items[1].StatusMessage, "groupId must be a string")
}
