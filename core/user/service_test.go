package user_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/core/prefs"
	"github.com/trezcool/schoolhealth/core/user"
	emailsvc "github.com/trezcool/schoolhealth/services/email"
	logsvc "github.com/trezcool/schoolhealth/services/logger"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/restapi"
	"github.com/trezcool/schoolhealth/services/session"
	inmemdb "github.com/trezcool/schoolhealth/storage/database/inmem"
	"github.com/trezcool/schoolhealth/tests"
)

type fixture struct {
	svc     *user.Service
	backend *testutil.Backend
	mail    *emailsvc.ConsoleService
	store   prefs.Store
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig()
	logger := logsvc.NewNop()
	core.ParseEmailTemplates(conf, logger)

	backend := testutil.NewBackend(t)
	client := restapi.NewClient(backend.Config(), session.Static("admin-token"), notify.NewCollector(), logger)
	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	store := prefs.Scoped(inmemdb.NewPrefsStore())

	backend.Handle(http.MethodGet, "/student", testutil.Data([]echo.Map{
		{"id": 30, "name": "Minh", "class_name": "5A", "parent_id": 20},
		{"id": 31, "name": "Khoa", "class_name": "3B", "parent_id": 20},
		{"id": 32, "name": "An", "class_name": "5A", "parent_id": 21, "role": "student"},
	}))
	backend.Handle(http.MethodGet, "/nurse", testutil.Data([]echo.Map{{"id": 7, "name": "Hanh", "email": "hanh@school.test"}}))
	backend.Handle(http.MethodGet, "/admin", testutil.Fail(http.StatusForbidden, "Admins only"))

	return fixture{svc: user.NewService(client, mail, store), backend: backend, mail: mail, store: store}
}

func TestService_ListByRole(t *testing.T) {
	f := setup(t)

	users, err := f.svc.ListByRole(context.Background(), user.RoleStudent)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Equal(t, user.RoleStudent, u.Role)
	}

	_, err = f.svc.ListByRole(context.Background(), "janitor")
	assert.ErrorIs(t, err, user.ErrUnknownRole)
	assert.Len(t, f.backend.Requests(), 1)
}

func TestService_Fetchers(t *testing.T) {
	f := setup(t)

	ctl := listing.NewController[user.User](0)
	require.NoError(t, ctl.Load(context.Background(), f.svc.Fetchers(user.RoleNurse, user.RoleStudent)...))
	assert.Len(t, ctl.Records(), 4)
	assert.Equal(t, "Hanh", ctl.Records()[0].Name)

	ctl.SetStatus(user.RoleNurse)
	assert.Len(t, ctl.Filtered(), 1)

	// one failing role fails the whole load
	err := ctl.Load(context.Background(), f.svc.Fetchers(user.RoleAdmin, user.RoleNurse)...)
	assert.Equal(t, http.StatusForbidden, core.StatusCode(err))
	assert.Equal(t, "Admins only", ctl.Err())
	assert.Len(t, ctl.Records(), 4)
}

func TestService_selectedChild(t *testing.T) {
	f := setup(t)
	lan := prefs.WithScope(context.Background(), "20")
	binh := prefs.WithScope(context.Background(), "21")

	children, err := f.svc.Children(lan, "20")
	require.NoError(t, err)
	assert.Len(t, children, 2)

	_, err = f.svc.SelectedChild(lan)
	assert.ErrorIs(t, err, user.ErrNoChild)

	_, err = f.svc.SelectChildOf(lan, "20", "32")
	assert.ErrorIs(t, err, user.ErrNotChild)

	child, err := f.svc.SelectChildOf(lan, "20", "31")
	require.NoError(t, err)
	assert.Equal(t, user.Child{ID: "31", Name: "Khoa", ClassName: "3B"}, child)

	got, err := f.svc.SelectedChild(lan)
	require.NoError(t, err)
	assert.Equal(t, child, got)

	// another parent has their own selection
	_, err = f.svc.SelectedChild(binh)
	assert.ErrorIs(t, err, user.ErrNoChild)

	require.NoError(t, f.svc.ClearSelectedChild(lan))
	require.NoError(t, f.svc.ClearSelectedChild(lan))
	_, err = f.svc.SelectedChild(lan)
	assert.ErrorIs(t, err, user.ErrNoChild)
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	f.backend.Handle(http.MethodPost, "/parent", testutil.Data(echo.Map{"id": 22, "name": "Cuong", "email": "cuong@school.test"}))

	usr, err := f.svc.Create(context.Background(), user.NewUser{
		Name: " Cuong ", Email: "Cuong@School.test", Role: "Parent", Password: "Xq7#mVr2$Lp", PasswordConfirm: "Xq7#mVr2$Lp",
	})
	require.NoError(t, err)
	assert.Equal(t, core.ID("22"), usr.ID)
	assert.Equal(t, user.RoleParent, usr.Role)

	sent := f.backend.Requests()[0]
	assert.Equal(t, "/parent", sent.Path)
	assert.Contains(t, string(sent.Body), `"email":"cuong@school.test"`)
	assert.Equal(t, "Bearer admin-token", sent.Authorization)
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	f.backend.Handle(http.MethodDelete, "/nurse/:id", func(ctx echo.Context) error {
		if ctx.Param("id") == "9" {
			return testutil.Fail(http.StatusBadRequest, "Nurse has open requests")(ctx)
		}
		return testutil.OK()(ctx)
	})

	deleted, err := f.svc.Delete(context.Background(), user.RoleNurse, "7", "9", "10")
	assert.Equal(t, "Nurse has open requests", core.MessageOf(err))
	assert.Equal(t, []core.ID{"7"}, deleted)
	assert.Zero(t, f.backend.Count(http.MethodDelete, "/nurse/10"))
}

func TestService_Invite(t *testing.T) {
	f := setup(t)

	assert.ErrorIs(t, f.svc.Invite(), user.ErrNoRecipients)
	assert.ErrorIs(t, f.svc.Invite(user.User{Name: "Minh"}), user.ErrNoEmailOnUser)

	require.NoError(t, f.svc.Invite(
		user.User{Name: "Hanh", Email: "hanh@school.test", Role: user.RoleNurse},
		user.User{Name: "Lan", Email: "lan@school.test", Role: user.RoleParent},
	))
	sent := f.mail.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hanh@school.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Hello Hanh")
	assert.Contains(t, sent[1].TextContent, "as parent")
}

func TestService_students(t *testing.T) {
	f := setup(t)
	f.backend.Handle(http.MethodGet, "/student/export", func(ctx echo.Context) error {
		return ctx.Blob(http.StatusOK, "application/octet-stream", []byte("PK-xlsx"))
	})
	f.backend.Handle(http.MethodPost, "/student/import", func(ctx echo.Context) error {
		if _, err := ctx.FormFile("file"); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		return testutil.Data(echo.Map{"created": 2, "updated": 1})(ctx)
	})
	f.backend.Handle(http.MethodPost, "/profile-img", testutil.Data("https://cdn.test/avatar.png"))

	buf := new(bytes.Buffer)
	require.NoError(t, f.svc.ExportStudents(context.Background(), buf))
	assert.Equal(t, "PK-xlsx", buf.String())

	res, err := f.svc.ImportStudents(context.Background(), "students.xlsx", strings.NewReader("PK"))
	require.NoError(t, err)
	assert.Equal(t, user.ImportResult{Created: 2, Updated: 1}, res)

	avatar, err := f.svc.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatar.png", avatar)
}

func TestUser_Key(t *testing.T) {
	boss := user.User{ID: "30", Name: "Boss", Role: user.RoleAdmin}
	minh := user.User{ID: "30", Name: "Minh", Role: user.RoleStudent}
	assert.Equal(t, core.ID("admin:30"), boss.Key())
	assert.NotEqual(t, boss.Key(), minh.Key())

	ctl := listing.NewController[user.User](0)
	defer ctl.Close()
	require.NoError(t, ctl.Load(context.Background(),
		func(context.Context) ([]user.User, error) { return []user.User{boss}, nil },
		func(context.Context) ([]user.User, error) { return []user.User{minh}, nil },
	))
	ctl.ToggleSelected(user.KeyOf(user.RoleAdmin, "30"))
	assert.Equal(t, []user.User{boss}, ctl.SelectedRecords())
	assert.Equal(t, []core.ID{"admin:30"}, ctl.Selected())
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key      core.ID
		wantRole string
		wantID   core.ID
		wantOk   bool
	}{
		{key: "admin:30", wantRole: user.RoleAdmin, wantID: "30", wantOk: true},
		{key: "student:a:b", wantRole: user.RoleStudent, wantID: "a:b", wantOk: true},
		{key: "30"},
		{key: "janitor:30"},
		{key: "nurse:"},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			role, id, ok := user.SplitKey(tt.key)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
