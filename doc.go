// Package auth provides bearer-credential primitives (JWT issuance and
// ordered validation, revocation registries, password reset lifecycle)
// plus HTTP guards for go-router and fiber apps.
//
// Validation:
//   - TokenService.Validate runs a fixed check order: signature, token
//     kind, subject, kind match, expiry, then the three revocation
//     gates. The first failing check decides the outcome, so a caller
//     always sees the same state for the same token.
//   - Every failure maps to an AuthState via ClassifyError. The states
//     form a closed set; HTTP responses carry the state tag and nothing
//     else, diagnostic detail stays in error metadata for logs.
//
// Revocation:
//   - RevocationRegistry tracks three timestamps: a global cut, a
//     per-account cut, and the account's last password change. A token
//     is rejected when its issued-at instant is strictly before any of
//     them. Timestamps are read fresh on every validation and storage
//     errors fail closed.
//
// Password reset:
//   - PasswordResetTokenStore issues single-use opaque tokens, one live
//     token per account. Consume deletes the row atomically before any
//     password write, so a token can never be spent twice even under
//     concurrent requests.
//
// Activity sinks:
//   - ActivitySink receives audit events for logins, refreshes,
//     revocations, and resets, each carrying an explicit ActorRef.
//     Sinks run best-effort (errors are logged) so forwarding to a
//     database or queue never blocks authentication.
package auth
