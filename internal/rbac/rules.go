package rbac

const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleLearner: {
		"grading:check",
		"grading:reset",
		"progress:view-own",
		"quiz:submit",
		"quiz:view-own",
		"telemetry:record",
		"account:change_password",
	},
	RoleAdmin: {
		"*", // everything
	},
}
