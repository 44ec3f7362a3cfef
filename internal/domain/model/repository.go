package model

import "fmt"

// Repository identifies the GitHub repository behind the project's origin remote.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns the "owner/name" form, or "" for the zero value.
func (r Repository) FullName() string {
	if r.Owner == "" && r.Name == "" {
		return ""
	}
	return r.Owner + "/" + r.Name
}

// Validate reports an error when either component is missing.
func (r Repository) Validate() error {
	if r.Owner == "" || r.Name == "" {
		return fmt.Errorf("repository %q: owner and name are required", r.FullName())
	}
	return nil
}
