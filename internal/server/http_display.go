package server

// displayServerInfo logs the server configuration at startup
func (s *Server) displayServerInfo(addr string, tlsEnabled bool) {
	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	s.logger.Info("Server listening",
		"url", scheme+"://"+addr,
		"tls_mode", s.tlsMode())

	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints lists the available API endpoints
func (s *Server) displayEndpoints() {
	s.logger.Info("Available endpoints",
		"public", []string{"GET /health", "GET /stats"},
		"protected", []string{
			"POST /tailor", "POST /extract", "POST /score",
			"GET /history", "GET /history/summary", "GET /history/{id}",
		})
}

func (s *Server) displayAuthInfo() {
	if len(s.apiKeys) > 0 {
		s.logger.Info("API authentication enabled", "keys", len(s.apiKeys))
		return
	}
	s.logger.Warn("API authentication disabled, endpoints are publicly accessible")
}

func (s *Server) displayRequestLimitInfo() {
	if s.cfg.MaxBodyBytes > 0 {
		s.logger.Info("Request size limit",
			"bytes", s.cfg.MaxBodyBytes,
			"mb", float64(s.cfg.MaxBodyBytes)/(1024*1024))
		return
	}
	s.logger.Warn("No request size limit configured")
}

func (s *Server) displayRateLimitInfo() {
	rl := s.cfg.RateLimit
	if !rl.Enabled {
		s.logger.Warn("Rate limiting disabled")
		return
	}
	s.logger.Info("Rate limiting enabled",
		"requests_per_min", rl.RequestsPerMin,
		"burst", rl.BurstCapacity,
		"by_api_key", rl.ByAPIKey,
		"by_ip", rl.ByIP)
}
