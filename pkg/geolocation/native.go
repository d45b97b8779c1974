package geolocation

import (
	"context"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/platform"
)

// nativePermissions adapts the platform permission client.
type nativePermissions struct {
	client *platform.PermissionClient
}

// NativePermissions returns a PermissionSubsystem backed by the native
// runtime-permission channel.
func NativePermissions(client *platform.PermissionClient) PermissionSubsystem {
	return nativePermissions{client: client}
}

func (n nativePermissions) HasPermission(permission string) bool {
	granted, err := n.client.Check(permission)
	if err != nil {
		errors.Report(&errors.PluginError{
			Op:      "geolocation.hasPermission",
			Kind:    errors.KindPermission,
			Channel: "drift/permissions",
			Err:     err,
		})
		return false
	}
	return granted
}

func (n nativePermissions) RequestPermissions(requestCode int, permissions []string) error {
	return n.client.RequestMultiple(requestCode, permissions)
}

// nativeProvider adapts the platform fused location client.
type nativeProvider struct {
	client *platform.FusedLocationClient
}

// NativeProvider returns a LocationProvider backed by the native fused
// location channel.
func NativeProvider(client *platform.FusedLocationClient) LocationProvider {
	return nativeProvider{client: client}
}

func (n nativeProvider) CurrentFix(ctx context.Context, priority Priority) (*Location, error) {
	native := platform.PriorityBalancedPower
	if priority == PriorityHighAccuracy {
		native = platform.PriorityHighAccuracy
	}
	reading, err := n.client.CurrentLocation(ctx, native)
	if err != nil || reading == nil {
		return nil, err
	}
	return &Location{
		Latitude:  reading.Latitude,
		Longitude: reading.Longitude,
		Altitude:  reading.Altitude,
		Accuracy:  reading.Accuracy,
	}, nil
}

// NewNative creates a Plugin wired to the native permission and location
// channels. Permission results from the native side are routed to the
// plugin, and fix completions run through platform.DispatchOrRun. Call the
// returned function to stop routing results.
func NewNative(opts ...Option) (*Plugin, func()) {
	opts = append([]Option{WithDispatcher(platform.DispatchOrRun)}, opts...)
	p := New(NativePermissions(platform.Permissions), NativeProvider(platform.Location), opts...)
	unsubscribe := platform.Permissions.Results().Listen(func(r platform.PermissionResults) {
		p.OnPermissionResult(r.RequestCode, r.Permissions, r.Granted)
	})
	return p, unsubscribe
}
