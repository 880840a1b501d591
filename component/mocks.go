package component

import (
	"context"
	"io"
	"log/slog"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/modacct/account-sdk/validation"
)

// MockProvider implements ports.Provider for testing
type MockProvider struct {
	Addr         values.Address
	Man          *entities.Manifest
	Tags         []values.CapabilityTag
	InstallErr   error
	UninstallErr error

	// NoProviderTag makes the mock deny the mandatory provider capability.
	NoProviderTag bool

	InstallCalls   int
	UninstallCalls int
	InstallData    []byte
	UninstallData  []byte

	// ValidationResults maps local function tags to canned results.
	ValidationResults map[uint8]validation.Result
	ValidationErr     error
}

func (m *MockProvider) Address() values.Address {
	return m.Addr
}

func (m *MockProvider) Manifest() *entities.Manifest {
	return m.Man
}

func (m *MockProvider) SupportsTag(tag values.CapabilityTag) bool {
	if tag == values.TagProvider {
		return !m.NoProviderTag
	}
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (m *MockProvider) OnInstall(ctx context.Context, data []byte) error {
	m.InstallCalls++
	m.InstallData = data
	return m.InstallErr
}

func (m *MockProvider) OnUninstall(ctx context.Context, data []byte) error {
	m.UninstallCalls++
	m.UninstallData = data
	return m.UninstallErr
}

func (m *MockProvider) RunValidationFunction(ctx context.Context, fn uint8, kind validation.Kind, payload []byte) (validation.Result, error) {
	if m.ValidationErr != nil {
		return validation.Result{}, m.ValidationErr
	}
	return m.ValidationResults[fn], nil
}

// MockEventSink implements ports.EventSink for testing
type MockEventSink struct {
	Installed   []values.Address
	Uninstalled []values.Address
	TeardownOKs []bool
}

func (m *MockEventSink) ComponentInstalled(ctx context.Context, component values.Address, digest values.Digest, dependencies []values.FuncRef) {
	m.Installed = append(m.Installed, component)
}

func (m *MockEventSink) ComponentUninstalled(ctx context.Context, component values.Address, teardownOK bool) {
	m.Uninstalled = append(m.Uninstalled, component)
	m.TeardownOKs = append(m.TeardownOKs, teardownOK)
}

// MockGatekeeper implements Gatekeeper for testing
type MockGatekeeper struct {
	Err    error
	Called bool
}

func (m *MockGatekeeper) ApproveInstall(ctx context.Context, manifest *entities.Manifest) error {
	m.Called = true
	return m.Err
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
