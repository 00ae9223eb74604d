package api

import (
	"encoding/json"
	"testing"
)

func TestUser_UnmarshalAcceptsStringID(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":"42","first_name":"Ada","email":"ada@example.com"}`), &u); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if u.ID != 42 || u.FirstName != "Ada" || u.Email != "ada@example.com" {
		t.Fatalf("user = %#v", u)
	}

	if err := json.Unmarshal([]byte(`{"id":"abc"}`), &u); err == nil {
		t.Fatalf("Unmarshal accepted non-numeric id")
	}
}

func TestUserFields_MergeSkipsEmpty(t *testing.T) {
	base := User{ID: 1, FirstName: "George", LastName: "Bluth", Email: "george.bluth@reqres.in"}
	got := UserFields{LastName: "Michael"}.Merge(base)
	if got.ID != 1 || got.FirstName != "George" || got.LastName != "Michael" || got.Email != base.Email {
		t.Fatalf("Merge = %#v", got)
	}
	if !(UserFields{}).IsZero() || (UserFields{Email: "x"}).IsZero() {
		t.Fatalf("IsZero mismatch")
	}
	if base.Fields().Merge(User{ID: 9}).FullName() != "George Bluth" {
		t.Fatalf("Fields round trip lost names")
	}
}
