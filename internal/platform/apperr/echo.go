package apperr

import "github.com/labstack/echo/v4"

// ToHTTP converts err into the echo error handlers return.
func ToHTTP(err error) error {
	return echo.NewHTTPError(HTTPStatus(err), err.Error())
}
