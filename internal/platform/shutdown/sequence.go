package shutdown

import (
	"context"
	"errors"
	"fmt"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
)

// Step is one phase of a shutdown sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Close adapts an io.Closer-style func into a Step.
func Close(name string, closeFn func() error) Step {
	return Step{Name: name, Run: func(context.Context) error {
		if closeFn == nil {
			return nil
		}
		return closeFn()
	}}
}

// Sequential returns one gfshutdown operation that runs steps in order.
// gfshutdown menjalankan tiap operation di goroutine sendiri, jadi
// resource yang dipakai handler (store, redis) harus ditutup di sini,
// setelah server selesai drain. Step berikutnya tetap jalan walau step
// sebelumnya gagal; semua error digabung.
func Sequential(steps ...Step) gfshutdown.Operation {
	return func(ctx context.Context) error {
		var errs []error
		for _, step := range steps {
			if err := step.Run(ctx); err != nil {
				logger.Error(fmt.Sprintf("Shutdown step %s failed", step.Name), err, nil)
				errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
				continue
			}
			logger.Info("Shutdown step " + step.Name + " done")
		}
		return errors.Join(errs...)
	}
}
