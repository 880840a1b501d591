package gatekeeper

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/modacct/account-sdk/capability"
)

// TerminalPrompter provides interactive terminal prompting for manifest
// approvals.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a new TerminalPrompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// PromptForRequest asks the user to grant one extracted permission request.
func (p *TerminalPrompter) PromptForRequest(req capability.Request) (granted bool, always bool, err error) {
	if req.IsBroad {
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "\033[1;33mSecurity Warning: Broad Permission Requested\033[0m\n\n")
		fmt.Fprintf(os.Stderr, "  %s\n", req.Description)
		fmt.Fprintf(os.Stderr, "  Recommendation: Review if this broad access is necessary.\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	const (
		OptionYes    = "Yes, grant for this install"
		OptionAlways = "Always grant (save approval)"
		OptionNo     = "No, deny"
	)

	var selection string

	err = huh.NewSelect[string]().
		Title("Component Requesting Permission").
		Description(req.Description).
		Options(
			huh.NewOption(OptionYes, OptionYes),
			huh.NewOption(OptionAlways, OptionAlways),
			huh.NewOption(OptionNo, OptionNo),
		).
		Value(&selection).
		Run()
	if err != nil {
		return false, false, err
	}

	switch selection {
	case OptionYes:
		return true, false, nil
	case OptionAlways:
		return true, true, nil
	default:
		return false, false, nil
	}
}

// FormatNonInteractiveError creates a helpful error message for non-interactive mode.
func (p *TerminalPrompter) FormatNonInteractiveError(name string, requests []capability.Request) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("component %q requires approval (running in non-interactive mode)\n\n", name))
	msg.WriteString("Requested permissions:\n")

	for _, req := range requests {
		if req.IsBroad {
			msg.WriteString(fmt.Sprintf("  - %s (broad)\n", req.Description))
		} else {
			msg.WriteString(fmt.Sprintf("  - %s\n", req.Description))
		}
	}

	msg.WriteString("\nTo approve:\n")
	msg.WriteString("  1. Run interactively and approve when prompted\n")
	msg.WriteString("  2. Construct the gatekeeper with WithTrustAll(true)\n")
	msg.WriteString("  3. Manually edit: ~/.acctlib/grants.yaml\n")

	return fmt.Errorf("%s", msg.String())
}
