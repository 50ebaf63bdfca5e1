package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/karlseguin/ccache/v2"
	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/auth"
	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/processor"
	"github.com/earthsight/oseo-server/services/csw"
	"github.com/earthsight/oseo-server/util"
)

// Constants serve as keys for setting values on a request-scoped Context.
const (
	PrincipalVal = iota
	CaptureGroupsVal
	UserVal
	Logger
	SessionID
)

// AppServer is an http.Handler implementation that holds most service dependencies.
type AppServer struct {
	// Port is the TCP port that the web server listens on.
	Port string
	// Bind is the Network Address that the web server will use.
	Bind string
	// Addr is the combined network address and port the server listens on.
	Addr string
	// RootDAO is the interface contract with the database.
	RootDAO dao.DAO
	// Conf is the web server configuration passed to the application.
	Conf config.ServerSettingsConfiguration
	// Ordering is the process-wide ordering registry.
	Ordering *config.OrderingConfiguration
	// ServicePrefix is the base url. Used when matching routes.
	ServicePrefix string
	// EventQueue is a Publisher interface we use to publish our main event stream.
	EventQueue events.Publisher
	// Authenticator validates the credentials on decoded requests.
	Authenticator auth.Authenticator
	// Catalogue resolves product identifiers to their parent collection.
	Catalogue *csw.Client
	// Processors holds the configured item processors, used during option
	// validation.
	Processors *processor.Registry
	// Routes holds the compiled regular expressions used when matching routes. See InitRegex method.
	Routes *StaticRx
	// UsersLruCache contains a cache of users with support to purge those
	// least recently used when filling.
	UsersLruCache *ccache.Cache
}

// NewAppServer creates an AppServer from the application configuration. The
// DAO, event queue, catalogue client and processor registry are wired by the
// caller.
func NewAppServer(conf config.AppConfiguration) (*AppServer, error) {
	authenticator, err := auth.New(conf.Ordering.AuthenticationClass, conf.Ordering.VendorTokenType)
	if err != nil {
		return nil, err
	}

	usersLruCache := ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(50))

	app := AppServer{
		Port:          conf.ServerSettings.ListenPort,
		Bind:          conf.ServerSettings.ListenBind,
		Addr:          conf.ServerSettings.ListenBind + ":" + conf.ServerSettings.ListenPort,
		Conf:          conf.ServerSettings,
		Ordering:      &conf.Ordering,
		ServicePrefix: conf.ServerSettings.BasePath,
		EventQueue:    events.NullPublisher{},
		Authenticator: authenticator,
		UsersLruCache: usersLruCache,
	}

	app.InitRegex()

	return &app, nil
}

// InitRegex compiles static regexes and initializes the AppServer Routes field.
func (h *AppServer) InitRegex() {
	route := func(path string) *regexp.Regexp {
		return regexp.MustCompile("^" + h.ServicePrefix + path)
	}
	h.Routes = &StaticRx{
		Ping: route("/ping$"),
		Oseo: route("/oseo$"),
		// Retrieval of produced files. The short form matches the URLs
		// reported by DescribeResultAccess, the long form addresses a file
		// through its order item.
		DownloadShort: route("/(?P<user>[^/]+)/order_(?P<orderId>[0-9]+)/(?P<file>[^/]+)$"),
		DownloadFull:  route("/(?P<user>[^/]+)/(?P<orderId>[0-9]+)/(?P<itemId>[^/]+)/(?P<file>[^/]+)$"),
	}
}

// StaticRx statically references compiled regular expressions.
type StaticRx struct {
	Ping          *regexp.Regexp
	Oseo          *regexp.Regexp
	DownloadShort *regexp.Regexp
	DownloadFull  *regexp.Regexp
}

// When there is a panic, all deferred functions get executed.
func logCrashInServeHTTP(logger *zap.Logger, w http.ResponseWriter) {
	if r := recover(); r != nil {
		logger.Error("oseo crash", zap.Any("context", r), zap.String("stack", string(debug.Stack())))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ServeHTTP handles the routing of requests
func (h AppServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := newSessionID()
	w.Header().Add("sessionid", sessionID)

	logger := config.RootLogger.With(zap.String("session", sessionID))
	defer logCrashInServeHTTP(logger, w)

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, logger)
	ctx = ContextWithSession(ctx, sessionID)

	logger.Info("transaction start",
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI),
	)

	var uri = r.URL.Path
	var herr *AppError

	switch r.Method {
	case "GET":
		switch {
		// basic HTTP 200 health check
		case h.Routes.Ping.MatchString(uri):
			herr = nil
		case h.Routes.Oseo.MatchString(uri):
			herr = NewAppError(403, nil, "the service endpoint accepts POST only")
		case h.Routes.DownloadShort.MatchString(uri):
			ctx = parseCaptureGroups(ctx, r.URL.Path, h.Routes.DownloadShort)
			herr = h.downloadFile(ctx, w, r)
		case h.Routes.DownloadFull.MatchString(uri):
			ctx = parseCaptureGroups(ctx, r.URL.Path, h.Routes.DownloadFull)
			herr = h.downloadFile(ctx, w, r)
		default:
			herr = do404(ctx, w, r)
		}
	case "POST":
		switch {
		case h.Routes.Oseo.MatchString(uri):
			herr = h.postOseo(ctx, w, r)
		default:
			herr = do404(ctx, w, r)
		}
	default:
		herr = NewAppError(405, nil, "method not allowed")
	}

	if herr != nil {
		sendAppErrorResponse(logger, &w, herr)
	} else {
		countOKResponse(logger)
	}
}

// FetchUser resolves the authenticated principal to a stored user, creating
// the record on first sight. Results are cached for five minutes.
func (h AppServer) FetchUser(principal auth.Principal) (models.OseoUser, error) {
	item, err := h.UsersLruCache.Fetch(principal.Username, 5*time.Minute, func() (interface{}, error) {
		user, err := h.RootDAO.GetUserByName(principal.Username)
		if err == sql.ErrNoRows || err == dao.ErrNoRows {
			return h.RootDAO.CreateUser(models.OseoUser{Username: principal.Username})
		}
		return user, err
	})
	if err != nil {
		return models.OseoUser{}, err
	}
	return item.Value().(models.OseoUser), nil
}

func newSessionID() string {
	return config.RandomID()
}

// ContextWithSession puts the sessionID on the context, used for log correlation
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionID, sessionID)
}

// ContextWithLogger puts the logger on the context
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, Logger, logger)
}

// LoggerFromContext gets a zap logger from our context
func LoggerFromContext(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(Logger).(*zap.Logger)
	if !ok {
		log.Print("!!! Any ctx object you get should have a logger set on it")
		return zap.NewNop()
	}
	return logger
}

// SessionIDFromContext extracts the session id from the context
func SessionIDFromContext(ctx context.Context) string {
	sessionID, ok := ctx.Value(SessionID).(string)
	if !ok {
		return "unknown"
	}
	return sessionID
}

// ContextWithPrincipal puts the authenticated principal on the context.
func ContextWithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalVal, principal)
}

// PrincipalFromContext extracts the principal from a context, if set.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	principal, ok := ctx.Value(PrincipalVal).(auth.Principal)
	return principal, ok
}

// ContextWithUser puts the user object on the context and returns the modified context
func ContextWithUser(ctx context.Context, user models.OseoUser) context.Context {
	return context.WithValue(ctx, UserVal, user)
}

// UserFromContext extracts the user from a context, if set
func UserFromContext(ctx context.Context) (models.OseoUser, bool) {
	user, ok := ctx.Value(UserVal).(models.OseoUser)
	return user, ok
}

func parseCaptureGroups(ctx context.Context, path string, regex *regexp.Regexp) context.Context {
	captured := util.GetRegexCaptureGroups(path, regex)
	return context.WithValue(ctx, CaptureGroupsVal, captured)
}

// CaptureGroupsFromContext extracts the capture groups from a context, if set
func CaptureGroupsFromContext(ctx context.Context) (map[string]string, bool) {
	captured, ok := ctx.Value(CaptureGroupsVal).(map[string]string)
	return captured, ok
}

func do404(ctx context.Context, w http.ResponseWriter, r *http.Request) *AppError {
	return NewAppError(404, nil, "resource not found "+r.Method+" "+r.URL.Path)
}
