package server

import (
	"net/http"

	"describe-service/internal/conf"
	"describe-service/internal/data"
	"describe-service/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const bulkDescribePath = "/v1/describe/bulk"

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	c *conf.Bootstrap,
	describe *service.DescribeService,
	credit *service.CreditService,
	admin *service.AdminService,
	runway *service.RunwayService,
	artifacts *data.ArtifactStore,
	logger log.Logger,
) *khttp.Server {
	var opts = []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, khttp.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, khttp.Address(c.Server.Http.Addr))
		}
		opts = append(opts, khttp.Timeout(c.Server.Http.Timeout.AsDuration()))
	}
	srv := khttp.NewServer(opts...)
	RegisterRoutes(srv, describe, credit, admin, runway, artifacts)
	log.NewHelper(logger).Infof("HTTP routes registered, batch files served from %s", artifacts.Dir())
	return srv
}

// RegisterRoutes 注册所有 HTTP 路由
func RegisterRoutes(
	srv *khttp.Server,
	describe *service.DescribeService,
	credit *service.CreditService,
	admin *service.AdminService,
	runway *service.RunwayService,
	artifacts *data.ArtifactStore,
) {
	r := srv.Route("/")
	r.POST("/v1/describe", describe.Describe)
	r.GET("/v1/describe/batches", describe.ListBatches)
	r.GET("/v1/describe/sessions/{id}", describe.GetSession)
	r.GET("/v1/credits", credit.GetCredits)
	r.GET("/v1/credits/usage", credit.GetUsage)
	r.GET("/v1/admin/users", admin.ListUsers)
	r.GET("/v1/admin/credits", admin.ListTransactions)
	r.POST("/v1/admin/credits", admin.AdjustCredits)
	r.POST("/v1/runway-prompt", runway.Generate)

	srv.HandlePrefix("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(artifacts.Dir()))))
	srv.Handle("/metrics", promhttp.Handler())

	// 流式接口不经过路由的 timeout，持续时间取决于图片数量，
	// 请求 context 只在调用方断开时取消
	routes := srv.Handler
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == bulkDescribePath {
			describe.StreamBulk(w, req)
			return
		}
		routes.ServeHTTP(w, req)
	})
}
