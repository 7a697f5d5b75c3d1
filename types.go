package authcore

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

const tokenTypeBearer = "bearer"

// SignupRequest is the input of [Engine.Signup]. Identity is an email
// address and becomes the account's immutable key.
type SignupRequest struct {
	Identity    string `json:"email"`
	DisplayName string `json:"username"`
	Password    string `json:"password"`
}

// ProfileUpdate carries user-editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"username,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// ConfirmResult is the outcome of a successful [Engine.ConfirmEmail].
type ConfirmResult uint8

const (
	ConfirmResultConfirmed ConfirmResult = iota + 1
	ConfirmResultAlreadyConfirmed
)

func (r ConfirmResult) String() string {
	switch r {
	case ConfirmResultConfirmed:
		return "confirmed"
	case ConfirmResultAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "unknown"
	}
}
