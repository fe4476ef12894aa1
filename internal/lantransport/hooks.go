package lantransport

// AddressChangeFunc is the policy decision point for SPEC §4.4.2's
// "address-change listener": given a candidate endpoint advertised for
// serviceName, it returns true iff the caller (connectionfsm's four-check
// decision, SPEC §4.4.2) wants a reconnect attempt against the new
// endpoint. oldHost is empty when there was no prior endpoint on record;
// oldPort is the prior config's effective port, which is DefaultPort when
// no port was set.
type AddressChangeFunc func(serviceName, newHost string, newPort int, oldHost string, oldPort int) bool

// Hooks wires the connection state machine's policy into the transport's
// mechanism (SPEC §4.4.2/§4.4.3). Any field may be left nil.
type Hooks struct {
	OnServiceFound   func(ServiceInfo)
	OnServiceLost    func(ServiceInfo)
	OnServiceUpdated func(old, new ServiceInfo)
	OnAddressChange  AddressChangeFunc

	OnHeartbeatDelayed func()
	OnHeartbeatTimeout func()
	OnHeartbeatFailed  func(error)
}
