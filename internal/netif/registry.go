package netif

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/wifiapp/internal/logging"
	"go.uber.org/zap"
)

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errors.New("interface registry already initialized")

// InitError reports why the interfaces could not be created. It is fatal:
// without both interfaces the manager has nothing to drive.
type InitError struct {
	Stage string // "validate", "station" or "access_point"
	Err   error
}

// Error implements the error interface
func (e *InitError) Error() string {
	return fmt.Sprintf("interface initialization failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *InitError) Unwrap() error {
	return e.Err
}

// Registry exclusively owns the station and access-point handles. Handles are
// created once by Initialize and destroyed once by Teardown; callers get
// non-owning references and must not Close them.
type Registry struct {
	driver Driver

	mu          sync.Mutex
	station     Station
	accessPoint AccessPoint
	initialized bool
	tornDown    bool
}

// NewRegistry creates a registry that builds interfaces on driver.
func NewRegistry(driver Driver) *Registry {
	return &Registry{driver: driver}
}

// Initialize validates both configurations and creates the station and AP
// interfaces. Link events for the station are delivered to events.
func (r *Registry) Initialize(ctx context.Context, sta StationConfig, ap AccessPointConfig, events EventHandler) (Station, AccessPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil, nil, ErrAlreadyInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, &InitError{Stage: "validate", Err: err}
	}
	if r.driver == nil {
		return nil, nil, &InitError{Stage: "validate", Err: errors.New("no radio driver configured")}
	}

	errs := append(ValidateStationConfig(sta), ValidateAccessPointConfig(ap)...)
	if len(errs) > 0 {
		return nil, nil, &InitError{Stage: "validate", Err: errors.Join(errs...)}
	}

	station, err := r.driver.NewStation(sta, events)
	if err != nil {
		return nil, nil, &InitError{Stage: "station", Err: err}
	}

	accessPoint, err := r.driver.NewAccessPoint(ap)
	if err != nil {
		if cerr := station.Close(); cerr != nil {
			logging.Warn("Failed to release station after AP init failure", zap.Error(cerr))
		}
		return nil, nil, &InitError{Stage: "access_point", Err: err}
	}

	r.station = station
	r.accessPoint = accessPoint
	r.initialized = true

	logging.Info("Network interfaces initialized",
		zap.String("station", station.Name()),
		zap.String("access_point", accessPoint.Name()),
		zap.String("ap_ssid", ap.SSID),
		zap.Int("ap_channel", ap.Channel),
		zap.String("ap_subnet", ap.Prefix().String()),
		zap.String("power_save", sta.PowerSave.String()),
	)

	return station, accessPoint, nil
}

// Station returns the station handle, or nil before Initialize/after Teardown.
func (r *Registry) Station() Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.station
}

// AccessPoint returns the AP handle, or nil before Initialize/after Teardown.
func (r *Registry) AccessPoint() AccessPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessPoint
}

// Teardown destroys both interfaces. Calling it again, or before Initialize,
// is a no-op.
func (r *Registry) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || r.tornDown {
		return nil
	}
	r.tornDown = true

	var errs []error
	if err := r.accessPoint.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", r.accessPoint.Name(), err))
	}
	if err := r.station.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", r.station.Name(), err))
	}
	r.station = nil
	r.accessPoint = nil

	logging.Info("Network interfaces torn down")
	return errors.Join(errs...)
}
