package runner

// TestCase is one golden-output test read from a fixture file.
type TestCase struct {
	Description string
	Input       string
	Expected    string
	RawOptions  string
	RawConfig   string

	// Source is "file:line" of the test's first line.
	Source string

	// Subtest distinguishes variants of one test, such as "tidy".
	Subtest string
}

// Article is a fixture page registered before a file's tests run.
type Article struct {
	Title           string
	Text            string
	IgnoreDuplicate bool
	Source          string
}

// Suite is the parsed content of one fixture file.
type Suite struct {
	Name     string
	Cases    []TestCase
	Articles []Article

	// Hook names the engine must provide for the file to run, by kind.
	Hooks            []string
	FunctionHooks    []string
	TransparentHooks []string
}
