package updater

// Adapted from the teacher's service_windows.go. The teacher depended on
// code.google.com/p/winsvc/svc, which has been unreachable since Google Code's 2016
// shutdown (see DESIGN.md); the same myservice/Execute control-loop shape is kept, now
// built on golang.org/x/sys/windows/svc, the maintained successor already present in this
// module's dependency graph via golang.org/x/sys.

import (
	"github.com/IMQS/log"
	"golang.org/x/sys/windows/svc"
)

type myservice struct {
	handler func()
}

func (m *myservice) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	const cmdsAccepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}
	changes <- svc.Status{State: svc.Running, Accepts: cmdsAccepted}
	go m.handler()
loop:
	for {
		c := <-r
		switch c.Cmd {
		case svc.Interrogate:
			changes <- c.CurrentStatus
		case svc.Stop, svc.Shutdown:
			break loop
		}
	}
	changes <- svc.Status{State: svc.StopPending}
	return false, 0
}

func runService(logger *log.Logger, handler func()) bool {
	interactive, err := svc.IsAnInteractiveSession()
	if err != nil {
		logger.Errorf("failed to determine if we are running in an interactive session: %v", err)
		return false
	}
	if interactive {
		return false
	}

	serviceName := "" // single-process service, name doesn't matter at this scope
	service := &myservice{handler: handler}
	if err := svc.Run(serviceName, service); err != nil {
		logger.Errorf("service run failed: %v", err)
	}
	return true
}
