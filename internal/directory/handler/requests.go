package handler

import (
	"strings"

	dErrors "mailkeep/pkg/domain-errors"
)

// AddUserRequest is the HTTP request body for POST /mail/users/add.
type AddUserRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Privileges []string `json:"privileges"`
}

// Validate checks the required fields. Address, password and privilege
// rules are enforced by the service.
func (r *AddUserRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// SetPasswordRequest is the HTTP request body for POST /mail/users/password.
type SetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SetPasswordRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// RemoveUserRequest is the HTTP request body for POST /mail/users/remove.
type RemoveUserRequest struct {
	Email string `json:"email"`
}

func (r *RemoveUserRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

// PrivilegeRequest is the HTTP request body for the privilege mutation
// endpoints.
type PrivilegeRequest struct {
	Email     string `json:"email"`
	Privilege string `json:"privilege"`
}

func (r *PrivilegeRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(r.Privilege) == "" {
		return dErrors.New(dErrors.CodeValidation, "privilege is required")
	}
	return nil
}

// AddAliasRequest is the HTTP request body for POST /mail/aliases/add.
type AddAliasRequest struct {
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	UpdateIfExists bool   `json:"update_if_exists"`
}

func (r *AddAliasRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return dErrors.New(dErrors.CodeValidation, "source is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return dErrors.New(dErrors.CodeValidation, "destination is required")
	}
	return nil
}

// RemoveAliasRequest is the HTTP request body for POST /mail/aliases/remove.
type RemoveAliasRequest struct {
	Source string `json:"source"`
}

func (r *RemoveAliasRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return dErrors.New(dErrors.CodeValidation, "source is required")
	}
	return nil
}
