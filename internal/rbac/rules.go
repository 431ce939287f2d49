package rbac

const (
	PermRubricView     = "rubric:view"
	PermRubricEdit     = "rubric:edit"
	PermRubricDelete   = "rubric:delete"
	PermClassView      = "class:view"
	PermClassEdit      = "class:edit"
	PermClassDelete    = "class:delete"
	PermCriteriaView   = "criteria:view"
	PermCriteriaEdit   = "criteria:edit"
	PermCriteriaDelete = "criteria:delete"
	PermActivityView   = "activity:view"
	PermActivityCreate = "activity:create"
	PermActivityDelete = "activity:delete"
	PermEvaluationSave = "evaluation:save"
	PermReportExport   = "report:export"
	PermAssistUse      = "assist:use"
)

// RolePermissions is the default policy. An assistant can grade and read but
// not change rubrics, rosters or criteria sets.
var RolePermissions = map[string][]string{
	"assistant": {
		PermRubricView,
		PermClassView,
		PermCriteriaView,
		PermActivityView,
		PermEvaluationSave,
		PermReportExport,
	},
	"teacher": {
		"rubric:*",
		"class:*",
		"criteria:*",
		"activity:*",
		PermEvaluationSave,
		PermReportExport,
		PermAssistUse,
	},
	"admin": {
		"*",
	},
}
