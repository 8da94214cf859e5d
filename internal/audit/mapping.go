package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseFullMethod maps a gRPC full method (e.g. /riverside.session.v1.SessionAdmin/RevokeAllSessions)
// to an audit action and resource. The resource is the service name without its
// Service/Admin suffix; the action is the method's leading verb.
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	service := fullMethod[:slash]
	if dot := strings.LastIndex(service, "."); dot >= 0 {
		service = service[dot+1:]
	} else {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(service)}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(strings.TrimSuffix(serviceName, "Service"), "Admin")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	for _, verb := range []string{"Get", "List", "Create", "Update", "Delete", "Revoke", "Purge"} {
		if strings.HasPrefix(method, verb) && method != verb {
			return strings.ToLower(verb)
		}
	}
	return strings.ToLower(method)
}
