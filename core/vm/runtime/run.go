// Copyright 2015 The CortexFoundation Authors
// This file is part of the CortexFoundation library.
//
// The CortexFoundation library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The CortexFoundation library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the CortexFoundation library. If not, see <http://www.gnu.org/licenses/>.

package runtime

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/CortexFoundation/stepvm/core/state"
	"github.com/CortexFoundation/stepvm/core/vm"
)

// Run steps v until it exits, answering each requirement from r. It
// returns ctx's error if ctx is done before v exits; v is left as it was
// after its last step and may be run again.
func Run(ctx context.Context, v vm.VM, r state.Reader) error {
	var requires int
	for v.Status().Kind == vm.Running {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := v.Step()
		if err == nil {
			continue
		}
		req, ok := vm.AsRequireError(err)
		if !ok {
			return err
		}
		requires++
		if err := state.Resolve(v, req, r); err != nil {
			return err
		}
	}
	log.Trace("VM run complete", "status", v.Status(), "requires", requires)
	return nil
}

// RunParallel runs independent VMs against the same reader, at most limit
// at a time (no limit when limit <= 0). Results are returned in the order
// of vms and are not written back. The first failure cancels the rest.
func RunParallel(ctx context.Context, vms []vm.VM, r state.Reader, limit int) ([]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	results := make([]*Result, len(vms))
	for i, v := range vms {
		i, v := i, v
		g.Go(func() error {
			if err := Run(ctx, v, r); err != nil {
				return fmt.Errorf("vm %d: %w", i, err)
			}
			results[i] = collect(v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
