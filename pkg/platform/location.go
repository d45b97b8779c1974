package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/geolocation/pkg/errors"
)

// Fused provider priorities understood by the native location channel.
const (
	PriorityHighAccuracy  = "high_accuracy"
	PriorityBalancedPower = "balanced_power"
)

// LocationReading is a single fix reported by the native fused provider.
type LocationReading struct {
	// Latitude is the latitude in degrees.
	Latitude float64
	// Longitude is the longitude in degrees.
	Longitude float64
	// Altitude is the altitude in meters.
	Altitude float64
	// Accuracy is the estimated horizontal accuracy in meters. The native
	// provider reports it at single precision.
	Accuracy float32
}

type fixOutcome struct {
	reading *LocationReading
	err     error
}

// FusedLocationClient requests one-shot fixes from the native fused
// location provider. Each request is tagged with a fresh id and answered by
// exactly one event on the fixes channel.
type FusedLocationClient struct {
	channel *MethodChannel
	fixes   *EventChannel

	mu      sync.Mutex
	pending map[string]chan fixOutcome
}

// Location is the singleton fused location client.
var Location = newFusedLocationClient()

func newFusedLocationClient() *FusedLocationClient {
	return &FusedLocationClient{
		channel: NewMethodChannel("drift/location"),
		fixes:   NewEventChannel("drift/location/fixes"),
		pending: make(map[string]chan fixOutcome),
	}
}

func init() {
	registerBuiltinInit(func() {
		Location.fixes.Listen(EventHandler{
			OnEvent: Location.handleFixEvent,
			OnError: func(err error) {
				errors.Report(&errors.PluginError{
					Op:      "location.fixStream",
					Kind:    errors.KindProvider,
					Channel: Location.fixes.Name(),
					Err:     err,
				})
				Location.failAll(err)
			},
			OnDone: func() {
				Location.failAll(ErrClosed)
			},
		})
	})
}

// CurrentLocation asks the native provider for a single fix at priority and
// waits for it. A nil reading with a nil error means the provider completed
// without a fix. ctx only bounds the wait on the Go side; the native request
// is never canceled.
func (l *FusedLocationClient) CurrentLocation(ctx context.Context, priority string) (*LocationReading, error) {
	id := uuid.NewString()
	done := make(chan fixOutcome, 1)

	// Register before triggering the native request so an early event is not lost.
	l.mu.Lock()
	l.pending[id] = done
	l.mu.Unlock()

	_, err := l.channel.Invoke("getCurrentLocation", map[string]any{
		"requestId": id,
		"priority":  priority,
	})
	if err != nil {
		l.take(id)
		return nil, err
	}

	select {
	case out := <-done:
		return out.reading, out.err
	case <-ctx.Done():
		l.take(id)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ErrCanceled
	}
}

// Pending returns the number of requests still waiting for a fix event.
func (l *FusedLocationClient) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *FusedLocationClient) take(id string) chan fixOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.pending[id]
	if !ok {
		return nil
	}
	delete(l.pending, id)
	return ch
}

func (l *FusedLocationClient) failAll(err error) {
	l.mu.Lock()
	pending := l.pending
	l.pending = make(map[string]chan fixOutcome)
	l.mu.Unlock()

	for _, ch := range pending {
		ch <- fixOutcome{err: err}
	}
}

func (l *FusedLocationClient) handleFixEvent(data any) {
	m := parseMap(data)
	id := parseString(m["requestId"])
	if m == nil || id == "" {
		errors.Report(&errors.PluginError{
			Op:      "location.parseFix",
			Kind:    errors.KindParsing,
			Channel: l.fixes.Name(),
			Err: &errors.ParseError{
				Channel:  l.fixes.Name(),
				DataType: "LocationFix",
				Got:      data,
			},
		})
		return
	}

	ch := l.take(id)
	if ch == nil {
		// Canceled on the Go side, or a duplicate answer.
		return
	}

	if e := parseMap(m["error"]); e != nil {
		ch <- fixOutcome{err: NewChannelError(parseString(e["code"]), parseString(e["message"]))}
		return
	}

	reading, err := parseLocationReading(m["location"])
	ch <- fixOutcome{reading: reading, err: err}
}

func parseLocationReading(data any) (*LocationReading, error) {
	if data == nil {
		return nil, nil
	}
	m := parseMap(data)
	if m == nil {
		return nil, fmt.Errorf("%w: location is %T", ErrInvalidArguments, data)
	}
	lat, latOK := toFloat64(m["latitude"])
	lon, lonOK := toFloat64(m["longitude"])
	if !latOK || !lonOK {
		return nil, fmt.Errorf("%w: location without coordinates", ErrInvalidArguments)
	}
	alt, _ := toFloat64(m["altitude"])
	acc, _ := toFloat64(m["accuracy"])
	return &LocationReading{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
		Accuracy:  float32(acc),
	}, nil
}
