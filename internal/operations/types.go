package operations

// Pipeline step identifiers
const (
	StageIDLoad      = "load"
	StageIDTransform = "transform"
	StageIDStorage   = "storage"
	StageIDVerify    = "verify"
	StageIDChart     = "chart"
	StageIDExport    = "export"
)

// Pipeline step names, as printed in the report
const (
	StageNameLoad      = "data loading"
	StageNameTransform = "data transformation"
	StageNameStorage   = "database write"
	StageNameVerify    = "database verification"
	StageNameChart     = "chart render"
	StageNameExport    = "spreadsheet export"
)

// Phase banner titles
var phaseTitles = map[int]string{
	1: "DATA LOADING & EXPLORATION",
	2: "DATA CLEANING & TRANSFORMATION",
	3: "DATA STORAGE & VISUALIZATION",
}
