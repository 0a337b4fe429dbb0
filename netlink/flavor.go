package netlink

// Flavor is one of the four socket classes a caller can see. All of them
// share one session implementation; the flavor only decides which methods
// and properties are reachable.
type Flavor uint8

const (
	FlavorBase Flavor = iota
	FlavorTCPClient
	FlavorTCPServer
	FlavorUDP
)

var classNames = [...]string{
	FlavorBase:      "NetLinkSocketBase",
	FlavorTCPClient: "NetLinkSocketClientTCP",
	FlavorTCPServer: "NetLinkSocketServerTCP",
	FlavorUDP:       "NetLinkSocketUDP",
}

// ClassName returns the caller-facing class name.
func (f Flavor) ClassName() string {
	if int(f) < len(classNames) {
		return classNames[f]
	}
	return "NetLinkSocket"
}

func (f Flavor) String() string { return f.ClassName() }

// FlavorByClass looks a flavor up by its class name.
func FlavorByClass(name string) (Flavor, bool) {
	for f, n := range classNames {
		if n == name {
			return Flavor(f), true
		}
	}
	return FlavorBase, false
}

type set map[string]struct{}

func newSet(groups ...[]string) set {
	s := make(set)
	for _, g := range groups {
		for _, name := range g {
			s[name] = struct{}{}
		}
	}
	return s
}

func (s set) has(name string) bool {
	_, ok := s[name]
	return ok
}

var (
	baseMethods = []string{
		"isBlocking", "setBlocking", "isDestroyed",
		"isIPv4", "isIPv6", "isTCP", "isUDP", "isClient", "isServer",
		"getPortFrom", "disconnect", "getNextReadSize",
	}
	baseProperties = []string{"isBlocking", "isDestroyed", "isIPv4", "isIPv6", "portFrom"}
)

// methodSets and propertySets are the capability sets checked at dispatch.
var (
	methodSets = [...]set{
		FlavorBase:      newSet(baseMethods),
		FlavorTCPClient: newSet(baseMethods, []string{"getHostTo", "getPortTo", "receive", "send"}),
		FlavorTCPServer: newSet(baseMethods, []string{"getHostFrom", "accept", "getListenQueue"}),
		FlavorUDP: newSet(baseMethods, []string{
			"getHostFrom", "getHostTo", "getPortTo",
			"receive", "receiveFrom", "send", "sendTo",
		}),
	}
	propertySets = [...]set{
		FlavorBase:      newSet(baseProperties),
		FlavorTCPClient: newSet(baseProperties, []string{"hostTo", "portTo"}),
		FlavorTCPServer: newSet(baseProperties, []string{"hostFrom"}),
		FlavorUDP:       newSet(baseProperties, []string{"hostFrom", "hostTo", "portTo"}),
	}
)

// HasMethod reports whether method is part of the flavor's capability set.
func (f Flavor) HasMethod(method string) bool {
	return int(f) < len(methodSets) && methodSets[f].has(method)
}

// HasProperty reports whether the flavor exposes property.
func (f Flavor) HasProperty(property string) bool {
	return int(f) < len(propertySets) && propertySets[f].has(property)
}
