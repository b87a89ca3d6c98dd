package pipeline

import "github.com/roach88/zapgen/internal/store"

// Mode selects what a run does. The five implementations below are the
// only modes; Run dispatches over them with a type switch.
type Mode interface {
	// Name is the human-readable mode name used in reports.
	Name() string
	isMode()
}

// Interactive loads metadata and templates into the interactive store and
// opens each file as a session, or a blank session when none are given.
// It never terminates the process.
type Interactive struct {
	Files []string
}

// SelfCheck verifies that metadata and templates load into a clean store.
type SelfCheck struct{}

// Analyze imports each file and writes a report for it.
type Analyze struct {
	Files []string
}

// Convert imports each file and exports it to Output.
type Convert struct {
	Files  []string
	Output string
}

// Generate renders the template package against one configuration (or a
// blank one) into the Output directory.
type Generate struct {
	Output        string
	Files         []string
	GenResultFile bool
	// Backup moves output files that already exist to <file>~.
	Backup bool
}

func (Interactive) Name() string { return "interactive" }
func (SelfCheck) Name() string   { return "self-check" }
func (Analyze) Name() string     { return "analyze" }
func (Convert) Name() string     { return "convert" }
func (Generate) Name() string    { return "generate" }

func (Interactive) isMode() {}
func (SelfCheck) isMode()   {}
func (Analyze) isMode()     {}
func (Convert) isMode()     {}
func (Generate) isMode()    {}

// policy is the per-mode stage policy.
type policy struct {
	storeName string
	// clean removes the store file before the run unless NoClean is set.
	clean bool
	// loadTemplates runs the template stage.
	loadTemplates bool
	// templatesFatal makes a template failure abort the run.
	templatesFatal bool
	// headless modes terminate the process when Options.Quit is set.
	headless bool
}

// policyFor returns the stage policy of m. The boolean is false for a Mode
// implementation this package does not know.
func policyFor(m Mode) (policy, bool) {
	switch m.(type) {
	case Interactive:
		return policy{storeName: store.NameInteractive, loadTemplates: true}, true
	case SelfCheck:
		return policy{storeName: store.NameSelfCheck, clean: true, loadTemplates: true, headless: true}, true
	case Analyze:
		return policy{storeName: store.NameAnalyze, clean: true, headless: true}, true
	case Convert:
		return policy{storeName: store.NameConvert, headless: true}, true
	case Generate:
		return policy{storeName: store.NameGenerate, clean: true, loadTemplates: true, templatesFatal: true, headless: true}, true
	default:
		return policy{}, false
	}
}
