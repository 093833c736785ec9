package router

import (
	"net/http"

	"github.com/aihub/loganomaly/app/controllers"
	"github.com/aihub/loganomaly/app/middleware"
	"github.com/beego/beego/v2/server/web"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Checker  controllers.LogChecker
	Baseline controllers.BaselineCounter
	Metrics  http.Handler
}

// Init registers all routes on handlers. Pass web.BeeApp.Handlers in production.
func Init(handlers *web.ControllerRegister, deps Dependencies) error {
	root := &controllers.RootController{}
	handlers.Add("/", root, web.WithRouterMethods(root, "get:Index"))

	health := &controllers.HealthController{Baseline: deps.Baseline}
	handlers.Add("/health", health, web.WithRouterMethods(health, "get:Health"))

	checkLog := &controllers.CheckLogController{Checker: deps.Checker}
	handlers.Add("/check_log", checkLog, web.WithRouterMethods(checkLog, "post:CheckLog"))

	if deps.Metrics != nil {
		metrics := &controllers.MetricsController{Handler: deps.Metrics}
		handlers.Add("/metrics", metrics, web.WithRouterMethods(metrics, "get:Metrics"))
	}

	if err := handlers.InsertFilter("/*", web.BeforeRouter, middleware.RequestTimer()); err != nil {
		return err
	}
	if err := handlers.InsertFilter("/check_log", web.BeforeRouter, middleware.RequestSizeLimit(middleware.DefaultMaxRequestSize)); err != nil {
		return err
	}
	return handlers.InsertFilter("/*", web.FinishRouter, middleware.AccessLog(), web.WithReturnOnOutput(false))
}
