package services

// Failure causes attached to failed services.
const (
	CausePortBound    = "port already bound by another process"
	CauseNotRunning   = "process not running"
	CauseUnitInactive = "unit inactive"
	CauseNoDiagnosis  = "no diagnosis"
)

type diagnosis struct {
	running  bool // a process matches the service's command line
	portOpen bool // something accepts connections on the probe endpoint
	systemd  bool
	active   bool // systemd reports the unit active
}

// diagnose picks the most specific explanation for a service that is not ready.
func diagnose(d diagnosis) string {
	switch {
	case !d.running && d.portOpen:
		return CausePortBound
	case d.systemd && !d.active:
		return CauseUnitInactive
	case !d.running:
		return CauseNotRunning
	}
	return CauseNoDiagnosis
}
