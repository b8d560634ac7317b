package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc is a middleware logging each request and its response.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		BEGIN := time.Now()
		c.Logger().Infof("< request %s %s", meth, path)

		err := next(c)

		END := time.Now()
		if err != nil {
			c.Logger().Warnf(
				"> response %s %s in %v / error = %+v", meth, path, END.Sub(BEGIN), err,
			)
		} else {
			c.Logger().Infof(
				"> response %s %s: status = %d in %v",
				meth, path, c.Response().Status, END.Sub(BEGIN),
			)
		}
		return err
	}
}

// ParseLevel converts a level name (debug, info, warn, error or off) into gommon's level.
//
// Empty means warn. The second value is false for unknown names.
func ParseLevel(loglevel string) (log.Lvl, bool) {
	switch strings.ToLower(loglevel) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "", "warn":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	default:
		return log.WARN, false
	}
}

// SetLevel sets level of e.Logger. Unknown level falls back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	lvl, ok := ParseLevel(loglevel)
	e.Logger.SetLevel(lvl)
	if !ok {
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
