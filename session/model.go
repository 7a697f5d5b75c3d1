package session

// Snapshot is the cached view of an account. It deliberately omits the
// password digest and the refresh token.
type Snapshot struct {
	Identity    string
	DisplayName string
	Avatar      string
	Role        string
	Confirmed   bool
	Active      bool
	CreatedAt   int64
	UpdatedAt   int64
}
