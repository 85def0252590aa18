package service

import (
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// NewSupervisor creates the supervisor that restarts failed services of one run.
// Supervisor events are logged through the "Supervisor" component.
func NewSupervisor(name string, services ...suture.Service) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger("Supervisor")}

	sup := suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	for _, svc := range services {
		if svc != nil {
			sup.Add(svc)
		}
	}
	return sup
}
