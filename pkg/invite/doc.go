// Package invite manages collaboration invitations for trees.
//
// An invitation addresses an email and carries a uuid token, a permission
// level and an expiry. Accepting the token adds the accepting user as a
// collaborator on the tree and invalidates their cached permission decisions.
// Overdue pending invitations are expired lazily on acceptance attempts and
// in bulk by SweepExpired, which the server binary runs on a cron schedule.
package invite
