package geolocation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetLocationFuture(t *testing.T) {
	perms := &mockPermissions{}
	grantAll(perms, true)
	provider := &mockProvider{}
	provider.On("CurrentFix", mock.Anything, PriorityHighAccuracy).Return(&Location{
		Latitude: 51.5, Longitude: -0.12, Altitude: 11, Accuracy: 20,
	}, nil)
	p := newTestPlugin(perms, provider)

	fix, err := p.GetLocation(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, LocationFix{Latitude: "51.5", Longitude: "-0.12", Altitude: "11.0", Accuracy: "20.0"}, fix)
}

func TestGetLocationFutureDenied(t *testing.T) {
	perms := &mockPermissions{}
	grantAll(perms, false)
	p := newTestPlugin(perms, &mockProvider{})
	perms.On("RequestPermissions", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		code := args.Int(0)
		go p.OnPermissionResult(code, DefaultPermissionSet.Names(), []bool{false, true})
	}).Return(nil)

	_, err := p.GetLocation(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))

	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, StatusIllegalAccess, re.Status)
}

func TestGetLocationFutureEmptyAndProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		loc     *Location
		err     error
		wantErr error
	}{
		{name: "empty", wantErr: ErrEmptyResult},
		{name: "provider", err: errors.New("boom"), wantErr: ErrProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureReports(t)
			perms := &mockPermissions{}
			grantAll(perms, true)
			provider := &mockProvider{}
			provider.On("CurrentFix", mock.Anything, mock.Anything).Return(tt.loc, tt.err)
			p := newTestPlugin(perms, provider)

			_, err := p.GetLocation(context.Background(), true)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetLocationFutureContextBoundsWait(t *testing.T) {
	perms := &mockPermissions{}
	grantAll(perms, false)
	perms.On("RequestPermissions", mock.Anything, mock.Anything).Return(nil)
	p := newTestPlugin(perms, &mockProvider{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.GetLocation(ctx, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The permission flow is still open; a late result must not block.
	assert.Equal(t, 1, p.Pending())
	assert.NotPanics(t, func() {
		p.OnPermissionResult(1, DefaultPermissionSet.Names(), []bool{false, false})
	})
}

func TestRequestPermissionFuture(t *testing.T) {
	perms := &mockPermissions{}
	grantAll(perms, true)
	p := newTestPlugin(perms, &mockProvider{})
	assert.NoError(t, p.RequestPermission(context.Background()))
}

func TestResultErrorIs(t *testing.T) {
	tests := []struct {
		status Status
		target error
	}{
		{StatusIllegalAccess, ErrPermissionDenied},
		{StatusError, ErrEmptyResult},
		{StatusProviderError, ErrProvider},
		{StatusJSONException, ErrInvalidArguments},
	}
	for _, tt := range tests {
		err := &ResultError{Status: tt.status}
		assert.ErrorIs(t, err, tt.target, tt.status.String())
	}
	assert.NotErrorIs(t, &ResultError{Status: StatusError}, ErrPermissionDenied)
	assert.Equal(t, "geolocation: PROVIDER_ERROR: boom", (&ResultError{Status: StatusProviderError, Message: "boom"}).Error())
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want LocationFix
	}{
		{
			name: "integral values keep a fraction",
			loc:  Location{Latitude: 0, Longitude: 10, Altitude: -3, Accuracy: 1},
			want: LocationFix{Latitude: "0.0", Longitude: "10.0", Altitude: "-3.0", Accuracy: "1.0"},
		},
		{
			name: "accuracy at single precision",
			loc:  Location{Latitude: 1.5, Longitude: 2.25, Altitude: 0.1, Accuracy: 0.1},
			want: LocationFix{Latitude: "1.5", Longitude: "2.25", Altitude: "0.1", Accuracy: "0.1"},
		},
		{
			name: "small and large magnitudes use exponent form",
			loc:  Location{Latitude: 0.0001, Longitude: -0.00042, Altitude: 1e7, Accuracy: 0.0005},
			want: LocationFix{Latitude: "1.0E-4", Longitude: "-4.2E-4", Altitude: "1.0E7", Accuracy: "5.0E-4"},
		},
		{
			name: "plain decimal range bounds",
			loc:  Location{Latitude: 0.001, Longitude: -9999999.5, Altitude: 12345678.9, Accuracy: 1e-3},
			want: LocationFix{Latitude: "0.001", Longitude: "-9999999.5", Altitude: "1.23456789E7", Accuracy: "0.001"},
		},
		{
			name: "signed zero",
			loc:  Location{Latitude: math.Copysign(0, -1), Longitude: 0},
			want: LocationFix{Latitude: "-0.0", Longitude: "0.0", Altitude: "0.0", Accuracy: "0.0"},
		},
		{
			name: "non-finite values",
			loc:  Location{Latitude: math.Inf(1), Longitude: math.Inf(-1), Altitude: math.NaN(), Accuracy: float32(math.Inf(1))},
			want: LocationFix{Latitude: "Infinity", Longitude: "-Infinity", Altitude: "NaN", Accuracy: "Infinity"},
		},
		{
			name: "large exponent",
			loc:  Location{Latitude: 1.25e-300, Longitude: 6.02e23, Altitude: 1e100, Accuracy: 3.4e38},
			want: LocationFix{Latitude: "1.25E-300", Longitude: "6.02E23", Altitude: "1.0E100", Accuracy: "3.4E38"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewLocationFix(tt.loc))
		})
	}
}
