package user

import (
	"time"

	"github.com/trezcool/schoolhealth/core/export"
	"github.com/trezcool/schoolhealth/core/listing"
)

// Sorts are the sort keys of the user list.
var Sorts = map[string]listing.Comparator[User]{
	"name":       listing.ByString(func(u User) string { return u.Name }),
	"email":      listing.ByString(func(u User) string { return u.Email }),
	"role":       listing.ByInt(func(u User) int { return RolePriority(u.Role) }),
	"class_name": listing.ByString(func(u User) string { return u.ClassName }),
	"created_at": listing.ByTime(func(u User) time.Time { return u.CreatedAt.Time }),
}

var Columns = []export.Column[User]{
	{Header: "ID", Value: func(u User) string { return u.ID.String() }},
	{Header: "Name", Value: func(u User) string { return u.Name }},
	{Header: "Email", Value: func(u User) string { return u.Email }},
	{Header: "Phone", Value: func(u User) string { return u.Phone }},
	{Header: "Role", Value: func(u User) string { return u.Role }},
	{Header: "Class", Value: func(u User) string { return u.ClassName }},
	{Header: "Created", Value: func(u User) string { return export.FormatTime(u.CreatedAt.Time) }},
}
