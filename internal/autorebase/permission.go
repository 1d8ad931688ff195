package autorebase

// DenyOneTimeRebaseComment is the comment that is created when a user
// without the required permission submitted a rebase command.
const DenyOneTimeRebaseComment = "Rebase commands can only be submitted by collaborators with write permission on the repository."

// PermissionPredicate decides if a user with the given repository permission
// level is allowed to submit rebase commands.
type PermissionPredicate func(permission string) bool

// DefaultOneTimeRebasePermissions are the permission levels that are allowed
// to submit rebase commands when nothing else is configured.
var DefaultOneTimeRebasePermissions = []string{"admin", "write"}

// RequirePermission returns a PermissionPredicate that accepts the given
// permission levels.
func RequirePermission(levels ...string) PermissionPredicate {
	allowed := make(map[string]struct{}, len(levels))
	for _, l := range levels {
		allowed[l] = struct{}{}
	}

	return func(permission string) bool {
		_, exist := allowed[permission]
		return exist
	}
}
