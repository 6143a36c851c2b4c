package profile

import "github.com/terra-clan/impact-portal/internal/models"

// EditBuffer holds a draft of a profile while it is being edited
type EditBuffer struct {
	original models.User
	draft    models.User
}

// BeginEdit starts a draft from u
func BeginEdit(u models.User) *EditBuffer {
	return &EditBuffer{original: u, draft: u}
}

// Apply copies the set fields of form onto the draft
func (b *EditBuffer) Apply(form models.EditForm) {
	form.Apply(&b.draft)
}

// Draft returns the current draft
func (b *EditBuffer) Draft() models.User {
	return b.draft
}

// Save commits the draft
func (b *EditBuffer) Save() models.User {
	b.original = b.draft
	return b.draft
}

// Cancel discards the draft and returns the last saved profile
func (b *EditBuffer) Cancel() models.User {
	b.draft = b.original
	return b.original
}
