package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	authcore "github.com/kwasu-clearance/authcore"
)

const sampleRoster = `
accounts:
  - id: u-1001
    email: Amina.Yusuf@kwasu.edu.ng
    full_name: Amina Yusuf
    role: student
    password_hash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaAhashplaceholder"
    active: true
  - id: u-2001
    email: bursar@kwasu.edu.ng
    role: officer
    password_hash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaAhashplaceholder"
    active: false
`

func TestFromReaderIndexesByCanonicalEmail(t *testing.T) {
	p, err := FromReader(strings.NewReader(sampleRoster))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 accounts, got %d", p.Len())
	}

	u, err := p.GetUserByEmail(context.Background(), "amina.yusuf@kwasu.edu.ng")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != "u-1001" || u.Role != authcore.RoleStudent || !u.Active {
		t.Fatalf("unexpected record: %+v", u)
	}
	if u.Email != "amina.yusuf@kwasu.edu.ng" {
		t.Fatalf("expected canonical email, got %q", u.Email)
	}

	// Lookup normalizes too.
	if _, err := p.GetUserByEmail(context.Background(), "  AMINA.YUSUF@kwasu.edu.ng "); err != nil {
		t.Fatalf("normalized lookup failed: %v", err)
	}
}

func TestGetUserByEmailUnknown(t *testing.T) {
	p, err := FromReader(strings.NewReader(sampleRoster))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if _, err := p.GetUserByEmail(context.Background(), "ghost@kwasu.edu.ng"); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFromReaderRejectsBadRosters(t *testing.T) {
	cases := []struct {
		name   string
		roster string
	}{
		{"missing email", "accounts:\n  - id: u-1\n    role: student\n    password_hash: h\n"},
		{"missing id", "accounts:\n  - email: a@b.c\n    role: student\n    password_hash: h\n"},
		{"missing hash", "accounts:\n  - id: u-1\n    email: a@b.c\n    role: student\n"},
		{"unknown role", "accounts:\n  - id: u-1\n    email: a@b.c\n    role: registrar\n    password_hash: h\n"},
		{"duplicate email", "accounts:\n  - id: u-1\n    email: a@b.c\n    role: student\n    password_hash: h\n  - id: u-2\n    email: A@B.C\n    role: admin\n    password_hash: h\n"},
		{"not yaml", "{{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromReader(strings.NewReader(tc.roster)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("definitely-not-here.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
