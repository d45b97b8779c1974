package platform

import (
	"fmt"

	"github.com/go-drift/geolocation/pkg/errors"
)

// Android runtime permission names for location access.
const (
	PermissionCoarseLocation = "android.permission.ACCESS_COARSE_LOCATION"
	PermissionFineLocation   = "android.permission.ACCESS_FINE_LOCATION"
)

// PermissionResults is the outcome of one native permission request flow.
// Permissions and Granted are parallel slices in request order.
type PermissionResults struct {
	RequestCode int
	Permissions []string
	Granted     []bool
}

// PermissionClient talks to the native runtime-permission subsystem.
type PermissionClient struct {
	channel *MethodChannel
	results *Stream[PermissionResults]
}

// Permissions is the singleton permission client.
var Permissions = newPermissionClient()

func newPermissionClient() *PermissionClient {
	return &PermissionClient{
		channel: NewMethodChannel("drift/permissions"),
		results: NewStream(NewEventChannel("drift/permissions/results"), parsePermissionResults),
	}
}

// Check reports whether permission is currently granted.
func (p *PermissionClient) Check(permission string) (bool, error) {
	result, err := p.channel.Invoke("check", map[string]any{
		"permission": permission,
	})
	if err != nil {
		return false, err
	}
	m := parseMap(result)
	if m == nil {
		return false, &errors.ParseError{
			Channel:  p.channel.Name(),
			DataType: "PermissionStatus",
			Got:      result,
		}
	}
	return parseString(m["status"]) == "granted", nil
}

// RequestMultiple starts a native permission flow for permissions tagged
// with requestCode. It returns once the flow has started; the outcome
// arrives on Results.
func (p *PermissionClient) RequestMultiple(requestCode int, permissions []string) error {
	_, err := p.channel.Invoke("requestMultiple", map[string]any{
		"requestCode": requestCode,
		"permissions": permissions,
	})
	return err
}

// Results returns the stream of permission flow outcomes.
func (p *PermissionClient) Results() *Stream[PermissionResults] {
	return p.results
}

func parsePermissionResults(data any) (PermissionResults, error) {
	m := parseMap(data)
	if m == nil {
		return PermissionResults{}, fmt.Errorf("expected map, got %T", data)
	}
	code, ok := toInt(m["requestCode"])
	if !ok {
		return PermissionResults{}, fmt.Errorf("missing requestCode")
	}
	raw, _ := m["grantResults"].([]any)
	granted := make([]bool, len(raw))
	for i, g := range raw {
		granted[i] = parseGrant(g)
	}
	return PermissionResults{
		RequestCode: code,
		Permissions: parseStrings(m["permissions"]),
		Granted:     granted,
	}, nil
}
