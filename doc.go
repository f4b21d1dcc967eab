// Package accounts implements account management for multi role
// applications: credential verification, typed signed-token issuance
// and verification with single use revocation, the registration and
// password reset lifecycle, and a static role based access control
// matrix overlaid by a process wide maintenance switch.
//
// Persistence is consumed through bun repositories, mail delivery
// through the Notifier capability, and password hashing through the
// PasswordHasher capability, so every collaborator can be swapped in
// tests or alternative deployments.
package accounts
