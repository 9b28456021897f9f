package httpapi

import "net/http"

// RouterConfig wires every handler and the middleware chain that wraps
// the mux (outermost first).
type RouterConfig struct {
	Programs   *ProgramHandler
	Locations  *LocationHandler
	Schedules  *ScheduleHandler
	Exceptions *ExceptionHandler
	Sessions   *SessionHandler
	Bookings   *BookingHandler
	Attendance *AttendanceHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the /scheduling/* route table (spec.md §6). Every
// resource identifier travels as a query parameter rather than a path
// segment, so each resource gets a single registered path that
// dispatches on method.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Programs != nil {
		mux.HandleFunc("/scheduling/programs", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Programs.List(w, r)
			case http.MethodPost:
				cfg.Programs.Create(w, r)
			case http.MethodPatch:
				cfg.Programs.Update(w, r)
			case http.MethodDelete:
				cfg.Programs.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Locations != nil {
		mux.HandleFunc("/scheduling/locations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Locations.List(w, r)
			case http.MethodPost:
				cfg.Locations.Create(w, r)
			case http.MethodPatch:
				cfg.Locations.Update(w, r)
			case http.MethodDelete:
				cfg.Locations.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Schedules != nil {
		mux.HandleFunc("/scheduling/schedules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedules.List(w, r)
			case http.MethodPost:
				cfg.Schedules.Create(w, r)
			case http.MethodPatch:
				cfg.Schedules.Update(w, r)
			case http.MethodDelete:
				cfg.Schedules.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Exceptions != nil {
		mux.HandleFunc("/scheduling/exceptions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Exceptions.List(w, r)
			case http.MethodPost:
				cfg.Exceptions.Create(w, r)
			case http.MethodPatch:
				cfg.Exceptions.Update(w, r)
			case http.MethodDelete:
				cfg.Exceptions.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/scheduling/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sessions.List(w, r)
		})
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("/scheduling/bookings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.List(w, r)
			case http.MethodPost:
				cfg.Bookings.Create(w, r)
			case http.MethodDelete:
				cfg.Bookings.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
			}
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/scheduling/attendance", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Attendance.List(w, r)
			case http.MethodPost:
				cfg.Attendance.Create(w, r)
			case http.MethodPatch:
				cfg.Attendance.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		header := allowed[0]
		for _, m := range allowed[1:] {
			header += ", " + m
		}
		w.Header().Set("Allow", header)
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
