package github

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
)

// RepoRef identifies one hosted repository.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Name }

// Locator turns repository links into owner/name pairs for a single host.
type Locator struct {
	re  *regexp.Regexp
	log *slog.Logger
}

func NewLocator(host string, log *slog.Logger) *Locator {
	pattern := `^https?://(?:www\.)?` + regexp.QuoteMeta(host) +
		`/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`

	return &Locator{
		re:  regexp.MustCompile(pattern),
		log: log,
	}
}

func (l *Locator) Parse(link string) (RepoRef, error) {
	m := l.re.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return RepoRef{}, fmt.Errorf("%w: unrecognized repository link %q", apperrors.ErrValidation, link)
	}

	return RepoRef{Owner: m[1], Name: m[2]}, nil
}

// Locate keeps every well-formed link, in input order and without duplicates.
// Malformed links are logged and skipped.
func (l *Locator) Locate(links []string) []RepoRef {
	const op = "internal.github.Locate"
	log := l.log.With(slog.String("op", op))

	refs := make([]RepoRef, 0, len(links))
	seen := make(map[RepoRef]struct{}, len(links))

	for _, link := range links {
		ref, err := l.Parse(link)
		if err != nil {
			log.Warn("skipping repository link", slog.String("link", link))
			continue
		}

		if _, ok := seen[ref]; ok {
			log.Debug("duplicate repository link", slog.String("repo", ref.String()))
			continue
		}

		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	return refs
}
