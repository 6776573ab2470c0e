// Package password implements password hashing and verification.
//
// # Schemes
//
//   - [Argon2]: Argon2id, encoded as a PHC string
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//   - [Bcrypt]: bcrypt modular-crypt strings ($2a$, $2b$, $2y$), for accounts
//     imported from systems that used BCryptPasswordEncoder.
//   - [Migrating]: hashes with a primary scheme and verifies any configured legacy
//     scheme. Legacy hashes report NeedsUpgrade so the caller can rehash on the
//     next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goPairAuth package.
//   - Log plaintext passwords.
package password
