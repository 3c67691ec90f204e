package user

import (
	"context"
	"io"
	"net/mail"
	"path"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/core/prefs"
)

const (
	// SelectedChildKey is the preference holding the parent's selected dependent.
	SelectedChildKey = "selectedChild"

	AvatarUploadPath = "/profile-img"
	inviteTemplate   = "invite"
)

var (
	ErrUnknownRole   = errors.New("unknown role")
	ErrNoChild       = errors.New("no child selected")
	ErrNotChild      = errors.New("this student is not your child")
	ErrNoRecipients  = errors.New("no user to invite")
	ErrNoEmailOnUser = errors.New("user has no email address")
)

// Service manages dashboard users through the REST API.
type Service struct {
	client  core.RESTClient
	mailSvc core.EmailService
	store   prefs.Store
}

func NewService(client core.RESTClient, mailSvc core.EmailService, store prefs.Store) *Service {
	return &Service{client: client, mailSvc: mailSvc, store: store}
}

func rolePath(role string, elem ...string) (string, error) {
	if !IsRole(role) {
		return "", errors.Wrap(ErrUnknownRole, role)
	}
	return path.Join(append([]string{"/", role}, elem...)...), nil
}

// ListByRole fetches the users of one role. Users missing a role get it from the collection.
func (svc *Service) ListByRole(ctx context.Context, role string) ([]User, error) {
	p, err := rolePath(role)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := svc.client.Get(ctx, p, nil, &users); err != nil {
		return nil, errors.Wrapf(err, "listing %s users", role)
	}
	for i := range users {
		if users[i].Role == "" {
			users[i].Role = role
		}
	}
	return users, nil
}

// Fetchers returns one list fetcher per role, all roles when none is given.
func (svc *Service) Fetchers(roles ...string) []listing.Fetcher[User] {
	if len(roles) == 0 {
		roles = AllRoles
	}
	fetchers := make([]listing.Fetcher[User], 0, len(roles))
	for _, role := range roles {
		role := role
		fetchers = append(fetchers, func(ctx context.Context) ([]User, error) {
			return svc.ListByRole(ctx, role)
		})
	}
	return fetchers
}

func (svc *Service) Get(ctx context.Context, role string, id core.ID) (User, error) {
	p, err := rolePath(role, id.PathSegment())
	if err != nil {
		return User{}, err
	}
	var usr User
	if err := svc.client.Get(ctx, p, nil, &usr); err != nil {
		return User{}, err
	}
	if usr.Role == "" {
		usr.Role = role
	}
	return usr, nil
}

// Create posts a validated NewUser to its role collection.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	p, err := rolePath(nu.Role)
	if err != nil {
		return User{}, err
	}
	var usr User
	if err := svc.client.Post(ctx, p, nu, &usr); err != nil {
		return User{}, err
	}
	if usr.Role == "" {
		usr.Role = nu.Role
	}
	return usr, nil
}

func (svc *Service) Update(ctx context.Context, role string, id core.ID, uu UpdateUser) (User, error) {
	p, err := rolePath(role, id.PathSegment())
	if err != nil {
		return User{}, err
	}
	var usr User
	if err := svc.client.Put(ctx, p, uu, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// UploadAvatar uploads a profile image and returns its URL.
func (svc *Service) UploadAvatar(ctx context.Context, filename string, content io.Reader) (string, error) {
	var res core.UploadResult
	err := svc.client.Upload(ctx, AvatarUploadPath, []core.Upload{{Filename: filename, Content: content}}, &res)
	if err != nil {
		return "", errors.Wrap(err, "uploading avatar")
	}
	return res.URL, nil
}

// Delete deletes users one by one and returns the ids actually deleted.
// It stops at the first failure.
func (svc *Service) Delete(ctx context.Context, role string, ids ...core.ID) ([]core.ID, error) {
	deleted := make([]core.ID, 0, len(ids))
	for _, id := range ids {
		p, err := rolePath(role, id.PathSegment())
		if err != nil {
			return deleted, err
		}
		if err := svc.client.Delete(ctx, p, nil, nil); err != nil {
			return deleted, errors.Wrapf(err, "deleting %s %s", role, id)
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// Invite emails every user an invitation to the dashboard.
func (svc *Service) Invite(users ...User) error {
	if len(users) == 0 {
		return ErrNoRecipients
	}
	msgs := make([]*core.EmailMessage, 0, len(users))
	for _, usr := range users {
		if usr.Email == "" {
			return errors.Wrap(ErrNoEmailOnUser, usr.Name)
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "You are invited to the school health dashboard",
			TemplateName: inviteTemplate,
			TemplateData: map[string]string{
				"Name":  usr.Name,
				"Role":  usr.Role,
				"Email": usr.Email,
			},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
	return nil
}

// ExportStudents streams the backend's XLSX export of all students into w.
func (svc *Service) ExportStudents(ctx context.Context, w io.Writer) error {
	return errors.Wrap(svc.client.Download(ctx, "/student/export", nil, w), "exporting students")
}

// ImportStudents uploads an XLSX file of students as is.
func (svc *Service) ImportStudents(ctx context.Context, filename string, content io.Reader) (ImportResult, error) {
	var res ImportResult
	err := svc.client.Upload(ctx, "/student/import", []core.Upload{{Field: "file", Filename: filename, Content: content}}, &res)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "importing students")
	}
	return res, nil
}

// Children returns the students whose parent is parentID.
func (svc *Service) Children(ctx context.Context, parentID core.ID) ([]User, error) {
	students, err := svc.ListByRole(ctx, RoleStudent)
	if err != nil {
		return nil, err
	}
	children := make([]User, 0)
	for _, st := range students {
		if st.ParentID == parentID {
			children = append(children, st)
		}
	}
	return children, nil
}

// SelectChild remembers child as the parent's selected dependent.
func (svc *Service) SelectChild(ctx context.Context, child Child) error {
	return prefs.SetJSON(ctx, svc.store, SelectedChildKey, child)
}

// SelectChildOf checks that childID is one of parentID's children before selecting it.
func (svc *Service) SelectChildOf(ctx context.Context, parentID, childID core.ID) (Child, error) {
	children, err := svc.Children(ctx, parentID)
	if err != nil {
		return Child{}, err
	}
	for _, ch := range children {
		if ch.ID == childID {
			child := ChildOf(ch)
			return child, svc.SelectChild(ctx, child)
		}
	}
	return Child{}, ErrNotChild
}

// SelectedChild returns the selected dependent, ErrNoChild if there is none.
func (svc *Service) SelectedChild(ctx context.Context) (Child, error) {
	var child Child
	if err := prefs.GetJSON(ctx, svc.store, SelectedChildKey, &child); err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			return Child{}, ErrNoChild
		}
		return Child{}, err
	}
	return child, nil
}

func (svc *Service) ClearSelectedChild(ctx context.Context) error {
	err := svc.store.Delete(ctx, SelectedChildKey)
	if errors.Is(err, prefs.ErrNotFound) {
		return nil
	}
	return err
}
