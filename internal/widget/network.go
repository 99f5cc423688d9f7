package widget

import (
	"context"
	"fmt"
)

// NetworkService is the platform capability the network widget wraps.
type NetworkService interface {
	// Status describes the current connection in one spoken line.
	Status(ctx context.Context) (string, error)
	// Networks lists visible Wi-Fi network names, strongest first.
	Networks(ctx context.Context) ([]string, error)
	Connect(ctx context.Context, name string) error
	Close() error
}

// NewNetworkWidget builds the built-in network control surface: a status
// row above one cell per visible network, activated to connect. The
// session is closed on release.
func NewNetworkWidget(svc NetworkService, verbose bool) (*Grid, error) {
	ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
	defer cancel()

	names, err := svc.Networks(ctx)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("list networks: %w", err)
	}

	statusRow := []Cell{{
		Label: "Status",
		Kind:  CellLabel,
		Text: func() string {
			ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
			defer cancel()
			status, err := svc.Status(ctx)
			if err != nil {
				return "Network status unavailable"
			}
			return status
		},
	}}

	networkRow := make([]Cell, 0, len(names))
	for _, name := range names {
		name := name
		networkRow = append(networkRow, Cell{
			Label: name,
			Kind:  CellButton,
			Do: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), controlWindow)
				defer cancel()
				return svc.Connect(ctx, name)
			},
		})
	}
	if len(networkRow) == 0 {
		networkRow = []Cell{{Label: "No networks found", Kind: CellLabel}}
	}

	rows := [][]Cell{statusRow, networkRow}
	return NewGrid(rows, verbose, func() { _ = svc.Close() }), nil
}
