package logsvc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/user"
)

func TestLogger_write(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New(buf, "API", &core.Config{})
	admin := user.User{ID: "1", Name: "Admin", Email: "admin@school.test"}

	l.Error("saving prefs",
		errors.New("boom"),
		errors.New("disk full"),
		map[string]interface{}{"route": "/v1/users"},
		admin,
		"retrying",
		42,
		nil,
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "saving prefs", line["message"])
	assert.Equal(t, "API", line["component"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "disk full", line["cause"])
	assert.Equal(t, "/v1/users", line["route"])
	assert.Equal(t, "1", line["user_id"])
	assert.Equal(t, "admin@school.test", line["user_email"])
	assert.Equal(t, "retrying", line["detail"])
	assert.EqualValues(t, 42, line["arg"])
	assert.Contains(t, line, "time")
}

func TestLogger_levels(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New(buf, "API", &core.Config{})
	l.Debug("hidden")
	assert.Empty(t, buf.String())
	l.Info("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	l = New(buf, "CLI", &core.Config{Debug: true})
	l.Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "CLI")
	assert.False(t, l.rollbar)

	assert.NotPanics(t, func() { NewNop().Warn("nothing", errors.New("boom")) })
}

func TestLogger_prepare(t *testing.T) {
	l := NewNop()
	err := errors.New("boom")
	fields := map[string]interface{}{"route": "/v1/users"}
	admin := user.User{ID: "1", Email: "admin@school.test"}
	nurse := user.User{ID: "7", Email: "hanh@school.test"}

	got := l.prepare("saving prefs", []interface{}{err, admin, fields, nurse})
	assert.Equal(t, []interface{}{"saving prefs", err, fields}, got)

	got = l.prepare("saving prefs", nil)
	assert.Equal(t, []interface{}{"saving prefs"}, got)
}
