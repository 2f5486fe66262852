package testinfra

import (
	"dispatcher/authority"
	"dispatcher/session"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/fundwit/go-commons/types"
)

// BuildSession builds a session holding a single role with the given permissions.
func BuildSession(uid types.ID, perms ...string) *session.Session {
	return &session.Session{
		Token:       "token-" + uid.String(),
		Identity:    session.Identity{ID: uid, Name: "user" + uid.String()},
		Roles:       authority.Roles{{Name: "role", Permissions: perms}},
		Policy:      authority.FirstRoleOnly,
		SigningTime: time.Now(),
	}
}

// BuildSessionWithRoles keeps the role order as given.
func BuildSessionWithRoles(uid types.ID, policy authority.RolePolicy, roles ...authority.Role) *session.Session {
	s := BuildSession(uid)
	s.Roles = roles
	s.Policy = policy
	return s
}

func ExecuteRequest(req *http.Request, handler http.Handler) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, string(body), resp
}
