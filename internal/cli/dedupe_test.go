package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe_DryRun(t *testing.T) {
	env := newCLIEnv(t)
	env.seed()

	out := env.mustRun("dedupe", "--dry-run")
	assert.Equal(t, "kapalam@5(10,20): keep bm-1, remove [bm-4]\nDry run: nothing removed.\n", out)

	ids := decodeList(t, env.mustRun("--format", "json", "list"))
	assert.Equal(t, []string{"bm-1", "bm-2", "bm-3", "bm-4"}, ids)
}

func TestDedupe_Removes(t *testing.T) {
	env := newCLIEnv(t)
	env.seed()

	var resp struct {
		Status string       `json:"status"`
		Data   DedupeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--format", "json", "dedupe")), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Removed)
	assert.Equal(t, 3, resp.Data.Remaining)
	assert.False(t, resp.Data.DryRun)
	require.Len(t, resp.Data.Groups, 1)
	assert.Equal(t, DuplicateReport{Position: "kapalam@5(10,20)", Keep: "bm-1", Remove: []string{"bm-4"}}, resp.Data.Groups[0])

	ids := decodeList(t, env.mustRun("--format", "json", "list"))
	assert.Equal(t, []string{"bm-1", "bm-2", "bm-3"}, ids)

	assert.Equal(t, "No duplicate positions.\n", env.mustRun("dedupe"))
}

func TestDedupe_TextReportsRemaining(t *testing.T) {
	env := newCLIEnv(t)
	env.seed()

	out := env.mustRun("dedupe")
	assert.Equal(t, "kapalam@5(10,20): keep bm-1, remove [bm-4]\nRemoved 1 duplicate bookmark(s), 3 remain\n", out)
}
