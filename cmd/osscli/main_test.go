package main

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss/api"
)

const testConfig = `
default_disk: media
disks:
  - name: media
    driver: memory
    endpoint: oss-cn-hangzhou.aliyuncs.com
    bucket: media-bucket
    access_key_id: ak
    access_key_secret: sk
    cdn_base_url: https://cdn.example.com
    upload_base_url: https://upload.example.com
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSignCommand(t *testing.T) {
	out, err := run(t, "sign", "a/b.txt", "--ttl", "5m")
	require.NoError(t, err)

	u, err := url.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "media-bucket.oss-cn-hangzhou.aliyuncs.com", u.Host)
	assert.Equal(t, "/a/b.txt", u.Path)
	assert.NotEmpty(t, u.Query().Get("Signature"))

	out, err = run(t, "sign", "a/b.txt", "--upload", "-m", "put")
	require.NoError(t, err)
	u, err = url.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "upload.example.com", u.Host)
}

func TestUploadURLCommand(t *testing.T) {
	out, err := run(t, "upload-url", "--prefix", "avatars", "--suffix", "a.jpg")
	require.NoError(t, err)

	var data api.UploadURLData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.True(t, strings.HasPrefix(data.Path, "avatars/"))
	assert.True(t, strings.HasSuffix(data.Path, "/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/"+data.Path, data.URL)
	assert.Equal(t, "PUT", data.Method)
	assert.Equal(t, "true", data.Headers["x-oss-forbid-overwrite"])
	assert.Contains(t, data.Action, "https://upload.example.com/"+data.Path+"?")
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "https://media-bucket.oss-cn-hangzhou-internal.aliyuncs.com/a.jpg")
	require.NoError(t, err)

	var data api.ClassifyData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "oss_internal", data.DomainType)
	assert.True(t, data.IsBucketURL)
}

func TestValidateCommand(t *testing.T) {
	t.Run("passes without existence check", func(t *testing.T) {
		out, err := run(t, "validate", "https://cdn.example.com/img/a.jpg", "--check-exists=false", "--extensions", "jpg,png")
		require.NoError(t, err)
		var data api.ValidateData
		require.NoError(t, json.Unmarshal([]byte(out), &data))
		assert.True(t, data.Passes)
		assert.Equal(t, "img/a.jpg", data.Path)
	})

	t.Run("fails with reason", func(t *testing.T) {
		out, err := run(t, "validate", "https://cdn.example.com/img/a.jpg")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file_not_found")
		var data api.ValidateData
		require.NoError(t, json.Unmarshal([]byte(out), &data))
		assert.False(t, data.Passes)
		assert.Equal(t, "The url does not exist in OSS.", data.Message)
	})
}

func TestMetaCommand(t *testing.T) {
	out, err := run(t, "meta", "https://cdn.example.com/missing.txt")
	require.NoError(t, err)

	var data api.MetaData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, 404, data.Status)
	assert.Nil(t, data.Size)

	_, err = run(t, "meta", "missing.txt")
	assert.Error(t, err)
}

func TestPutAndGetCommands(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	out, err := run(t, "put", src, "docs/in.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/docs/in.txt\n", out)

	// each run builds fresh disks, so the memory disk is empty again
	_, err = run(t, "get", "docs/in.txt", filepath.Join(dir, "out.txt"))
	assert.Error(t, err)
}

func TestUnknownDisk(t *testing.T) {
	_, err := run(t, "--disk", "nope", "classify", "https://cdn.example.com/a.jpg")
	assert.Error(t, err)
}
