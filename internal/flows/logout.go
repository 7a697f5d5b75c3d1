package flows

import "context"

// RunLogout drops the account's refresh token. Access tokens already issued
// stay valid until they expire.
func RunLogout(ctx context.Context, identity string, deps RefreshClearer) error {
	return deps.Clear(ctx, identity)
}
