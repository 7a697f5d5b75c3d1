// Package password implements slow, salted, self-describing password digests.
//
// # Output formats
//
// [Argon2] emits PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] emits modular-crypt strings ($2a$<cost>$...). Both encode every
// parameter needed for verification, so a digest can be checked without
// external configuration. [Dispatch] verifies either format and hashes with
// one primary algorithm, reporting when a stored digest should be re-hashed.
//
// # Length policy
//
// Hash rejects passwords shorter than the configured minimum (6 bytes by
// default) with [ErrPasswordTooShort]. Hash and Verify both reject inputs over
// the maximum with [ErrPasswordTooLong]. Verify ignores the minimum so that
// raising it never locks out existing accounts. A digest that does not parse
// yields [ErrMalformedDigest].
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive digests.
//   - Import any other authcore package.
//   - Log plaintext passwords.
package password
