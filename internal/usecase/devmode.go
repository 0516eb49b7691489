package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

const devModeRepo = "services"

var stagePR = regexp.MustCompile(`-pr-(\d+)`)

// DevMode restricts a preview deployment to its own repository and pull request.
type DevMode struct {
	Enabled  bool
	Repo     string
	PRNumber int
}

// NewDevMode derives the filter from the environment and deployment stage.
func NewDevMode(cfg *config.Config) DevMode {
	a := cfg.Approval
	prDeployment := strings.HasPrefix(a.Stage, "-pr-")

	mode := DevMode{Enabled: a.Environment == "dev" || prDeployment}
	if mode.Enabled {
		mode.Repo = devModeRepo
	}

	switch {
	case a.DevPRNumber > 0:
		mode.PRNumber = a.DevPRNumber
	case prDeployment:
		if m := stagePR.FindStringSubmatch(a.Stage); m != nil {
			mode.PRNumber, _ = strconv.Atoi(m[1])
		}
	}
	return mode
}

// Allows reports whether events for repo and pull request number should be handled.
func (d DevMode) Allows(repo string, number int) bool {
	if !d.Enabled {
		return true
	}
	if d.Repo != "" && repo != d.Repo {
		return false
	}
	return d.PRNumber == 0 || number == d.PRNumber
}
