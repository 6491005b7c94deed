package service

import "ipcore/pkg/netstack/instance"

// Tick drives the aging timer (spec.md §4.8): the assembly table's
// stale fragment entries are reaped, then every instance's queued
// received datagrams are aged. A retried Delivery pass follows, so a
// datagram that arrived before its receive token (or whose earlier
// delivery attempt failed with out-of-resources) still gets matched up
// once the token, or the resources, show up — spec.md §7's "later
// ticks drive retry implicitly". Callers invoke this on a fixed
// interval, nominally 1 Hz; event/timer infrastructure itself is an
// external collaborator (spec.md §1).
func (s *Service) Tick() {
	s.assembly.Age()

	s.mu.Lock()
	instances := make([]*instance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		instances = append(instances, inst)
	}
	s.mu.Unlock()

	for _, inst := range instances {
		inst.Age()
		if err := instance.Deliver(inst); err != nil {
			s.log.WithField("instance", inst.ID).WithError(err).Debug("delivery retry on tick did not complete")
		}
	}
}
