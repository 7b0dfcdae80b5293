package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" orders descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type (
	startRequest struct {
		Kind     string `json:"kind"`
		District string `json:"district"`
		Network  string `json:"network"`
	}

	// stepRequest names the step the client believes is current.
	stepRequest struct {
		Step string `json:"step"`
	}

	nextResponse struct {
		Advanced bool `json:"advanced"`
		flow.Snapshot
	}

	submitResponse struct {
		Receipt  flow.Receipt `json:"receipt"`
		Redirect string       `json:"redirect"`
	}

	redirectResponse struct {
		Redirect string `json:"redirect"`
	}
)
