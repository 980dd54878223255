package model

// Viewer is the identity the app acts as. It is passed explicitly to the
// pieces that need it. The Can* helpers only gate UI controls; the store
// enforces the real rules.
type Viewer struct {
	Username string
	Admin    bool
}

func (v *Viewer) LoggedIn() bool {
	return v != nil && v.Username != ""
}

func (v *Viewer) CanEdit(c Comment) bool {
	return v.LoggedIn() && !c.Deleted && c.AuthorName() == v.Username
}

func (v *Viewer) CanDelete(c Comment) bool {
	if !v.LoggedIn() || c.Deleted {
		return false
	}
	return v.Admin || c.AuthorName() == v.Username
}

func (v *Viewer) CanBan(c Comment) bool {
	if !v.LoggedIn() || !v.Admin {
		return false
	}
	author := c.AuthorName()
	return author != "" && author != v.Username
}
