package netlink

// GetProperty reads a property of the socket behind handle.
func (h *Host) GetProperty(handle uint32, name string) (any, error) {
	s, ok := h.table.Get(handle)
	if !ok {
		return nil, ErrUnknownHandle
	}
	if !s.flavor.HasProperty(name) {
		return nil, misuse("Property %q does not exist on %s instance.", name, s.flavor.ClassName())
	}

	switch name {
	case "isBlocking":
		return s.session.IsBlocking(), nil
	case "isDestroyed":
		return s.session.IsDestroyed(), nil
	case "isIPv4":
		return s.session.IsIPv4(), nil
	case "isIPv6":
		return s.session.IsIPv6(), nil
	case "portFrom":
		return s.session.PortFrom(), nil
	case "hostFrom":
		return s.session.HostFrom(), nil
	case "hostTo":
		return methods["getHostTo"](h, s, nil)
	default: // portTo
		return methods["getPortTo"](h, s, nil)
	}
}

// SetProperty writes a property of the socket behind handle. Only
// isBlocking is writable; it takes a boolean.
func (h *Host) SetProperty(handle uint32, name string, value any) error {
	s, ok := h.table.Get(handle)
	if !ok {
		return ErrUnknownHandle
	}
	if !s.flavor.HasProperty(name) {
		return misuse("Property %q does not exist on %s instance.", name, s.flavor.ClassName())
	}
	if name != "isBlocking" {
		return &PropertyError{Property: name, Class: s.flavor.ClassName(), ReadOnly: true}
	}

	blocking, ok := value.(bool)
	if !ok {
		return &PropertyError{Property: name, Class: s.flavor.ClassName()}
	}
	return s.session.SetBlocking(blocking)
}
