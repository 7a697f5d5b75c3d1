// Package account defines the account record shared by every authcore
// component together with the Store contract that persistence backends
// implement.
package account
