package assistant

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repo_assistant/executor"
)

// previewSize is the number of listed items rendered.
const previewSize = 3

// Render writes a human-readable view of o to w. With
// debug set, the parsed intent is appended.
func Render(w io.Writer, o Outcome, debug bool) error {
	const errCtx = "rendering outcome"

	pr := &printer{w: w}

	if o.Envelope.Success() {
		pr.printf("\n%s\n", o.Reply)
		renderResult(pr, o.Envelope.Result())
	} else {
		reply := o.Reply
		if reply == "" {
			reply = o.Envelope.Err()
		}

		pr.printf("\nError: %s\n", reply)

		if reply != o.Envelope.Err() {
			pr.printf("Details: %s\n", o.Envelope.Err())
		}
	}

	if debug {
		raw, err := json.Marshal(o.Intent)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		pr.printf("Debug - Request %s - Intent: %s\n", o.RequestID, raw)
	}

	if pr.err != nil {
		return fmt.Errorf("%s: %w", errCtx, pr.err)
	}

	return nil
}

func renderResult(pr *printer, r executor.Result) {
	switch v := r.(type) {
	case executor.RepositoryCreated:
		pr.link(v.URL)
	case executor.IssueCreated:
		pr.link(v.URL)
	case executor.PullRequestCreated:
		pr.link(v.URL)
	case executor.RepositoryList:
		for i, repo := range v.Repositories {
			if i == previewSize {
				break
			}

			pr.printf("  - %s: %s\n", repo.Name, repo.URL)
		}
	case executor.IssueList:
		for i, is := range v.Issues {
			if i == previewSize {
				break
			}

			pr.printf("  - %s: %s\n", is.Title, is.URL)
		}
	case executor.RepositoryInfo:
		pr.link(v.URL)
		pr.printf("Stars: %d, Forks: %d\n", v.Stars, v.Forks)
	case executor.RepositoryStats:
		pr.printf("Stars: %d, Forks: %d\n", v.Stars, v.Forks)
	}
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) link(url string) {
	if url != "" {
		p.printf("Link: %s\n", url)
	}
}
