package flows

// Deps groups flow dependency sets. The engine builds this once and delegates
// request methods to the matching flow.
type Deps struct {
	Login        LoginDeps
	Refresh      RefreshDeps
	Resolve      ResolveDeps
	Signup       SignupDeps
	Confirm      ConfirmDeps
	RequestEmail RequestVerificationDeps
	Admin        AccountAdminDeps
}
