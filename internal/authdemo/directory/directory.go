package directory

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Member is a person shown on the home page.
type Member struct {
	Name  string
	Email string
}

// Initials returns the upper-cased first letter of each word in the name.
func (m Member) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(m.Name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Service lists members.
type Service interface {
	Members(ctx context.Context) ([]Member, error)
}

// StaticService serves a fixed member list.
type StaticService struct {
	members []Member
}

// NewStaticService returns a StaticService with the sample members, or the ones supplied.
func NewStaticService(members ...Member) *StaticService {
	if len(members) == 0 {
		members = []Member{
			{Name: "Meet", Email: "meet.j@example.com"},
			{Name: "Bob will", Email: "bob.w@example.com"},
			{Name: "Charlie black", Email: "charlie.b@example.com"},
		}
	}
	return &StaticService{members: members}
}

// Members implements Service.
func (s *StaticService) Members(ctx context.Context) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Member(nil), s.members...), nil
}
