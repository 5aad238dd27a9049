// Package junit parses test results: standard JUnit XML reports and the
// junitResult.xml files Jenkins keeps in every build directory.
package junit

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"buildtriage/src/ingest"
	"buildtriage/src/jenkins"
)

// ResultFile is the name of the Jenkins test report inside a build directory.
const ResultFile = "junitResult.xml"

// State is the outcome of a test case.
type State string

const (
	StatePassed  State = "passed"
	StateFailed  State = "failed"
	StateSkipped State = "skipped"
)

// Case is one test case from either report format.
type Case struct {
	TestName  string
	ClassName string
	SuiteName string
	State     State
	// Kind is "failure" or "error" for failed cases of standard JUnit reports.
	Kind       string
	Message    string
	StackTrace string
	Duration   float64
}

// Failed reports whether the case failed and was not skipped.
func (c Case) Failed() bool {
	return c.State == StateFailed
}

// QualifiedName returns "<class>.<test>".
func (c Case) QualifiedName() string {
	return fmt.Sprintf("%s.%s", c.ClassName, c.TestName)
}

// TestSuites is the root element for multiple test suites.
type TestSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	TestSuites []TestSuite `xml:"testsuite"`
}

// TestSuite represents a <testsuite> element.
type TestSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      float64    `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

// TestCase represents a <testcase> element.
type TestCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      float64  `xml:"time,attr"`
	Failure   *Problem `xml:"failure"`
	Error     *Problem `xml:"error"`
	Skipped   *Skipped `xml:"skipped"`
}

// Problem is a <failure> or <error> element.
type Problem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// Skipped represents a skipped test.
type Skipped struct {
	Message string `xml:"message,attr"`
}

// jenkinsResult is the root of a Jenkins junitResult.xml file.
type jenkinsResult struct {
	XMLName xml.Name       `xml:"result"`
	Suites  []jenkinsSuite `xml:"suites>suite"`
}

type jenkinsSuite struct {
	Name  string        `xml:"name"`
	Cases []jenkinsCase `xml:"cases>case"`
}

type jenkinsCase struct {
	ClassName       string  `xml:"className"`
	TestName        string  `xml:"testName"`
	Skipped         string  `xml:"skipped"`
	FailedSince     int     `xml:"failedSince"`
	ErrorDetails    string  `xml:"errorDetails"`
	ErrorStackTrace string  `xml:"errorStackTrace"`
	Duration        float64 `xml:"duration"`
}

// ParseFile parses the report at path (or path.gz). A missing file yields no cases
// and no error.
func ParseFile(path string) ([]Case, error) {
	data, err := ingest.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read test report: %w", err)
	}
	return Parse(data)
}

// Parse parses a test report and returns every case it contains. The format is
// chosen from the root element: <result> (Jenkins), <testsuites> or <testsuite>.
func Parse(data []byte) ([]Case, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}

	switch root {
	case "result":
		var result jenkinsResult
		if err := jenkins.NewDecoder(data).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to parse Jenkins test result: %w", err)
		}
		return extractJenkinsCases(result.Suites), nil
	case "testsuites":
		var suites TestSuites
		if err := jenkins.NewDecoder(data).Decode(&suites); err != nil {
			return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
		}
		return extractCases(suites.TestSuites), nil
	case "testsuite":
		var suite TestSuite
		if err := jenkins.NewDecoder(data).Decode(&suite); err != nil {
			return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
		}
		return extractCases([]TestSuite{suite}), nil
	default:
		return nil, fmt.Errorf("failed to parse JUnit XML: unexpected root element <%s>", root)
	}
}

// Failures returns the failed, non-skipped cases.
func Failures(cases []Case) []Case {
	var failed []Case
	for _, c := range cases {
		if c.Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}

func rootElement(data []byte) (string, error) {
	dec := jenkins.NewDecoder(data)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("document has no root element")
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// extractCases converts standard JUnit suites.
func extractCases(suites []TestSuite) []Case {
	var cases []Case

	for _, suite := range suites {
		for _, tc := range suite.TestCases {
			c := Case{
				TestName:  tc.Name,
				ClassName: tc.ClassName,
				SuiteName: suite.Name,
				State:     StatePassed,
				Duration:  tc.Time,
			}

			switch {
			case tc.Skipped != nil:
				c.State = StateSkipped
				c.Message = tc.Skipped.Message
			case tc.Failure != nil:
				c.State = StateFailed
				c.Kind = "failure"
				c.Message = tc.Failure.Message
				c.StackTrace = strings.TrimSpace(tc.Failure.Content)
			case tc.Error != nil:
				c.State = StateFailed
				c.Kind = "error"
				c.Message = tc.Error.Message
				c.StackTrace = strings.TrimSpace(tc.Error.Content)
			}

			cases = append(cases, c)
		}
	}

	return cases
}

// extractJenkinsCases converts junitResult.xml suites. A case is failed when
// failedSince is non-zero, unless it is marked skipped.
func extractJenkinsCases(suites []jenkinsSuite) []Case {
	var cases []Case

	for _, suite := range suites {
		for _, jc := range suite.Cases {
			c := Case{
				TestName:   strings.TrimSpace(jc.TestName),
				ClassName:  strings.TrimSpace(jc.ClassName),
				SuiteName:  strings.TrimSpace(suite.Name),
				State:      StatePassed,
				Message:    strings.TrimSpace(jc.ErrorDetails),
				StackTrace: strings.TrimSpace(jc.ErrorStackTrace),
				Duration:   jc.Duration,
			}

			switch {
			case strings.TrimSpace(jc.Skipped) == "true":
				c.State = StateSkipped
			case jc.FailedSince != 0:
				c.State = StateFailed
			}

			cases = append(cases, c)
		}
	}

	return cases
}
