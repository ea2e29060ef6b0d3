package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.svc.Projects.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]projectDTO, len(projects))
	for i, p := range projects {
		out[i] = toProjectDTO(p)
	}
	c.JSON(http.StatusOK, gin.H{"projects": out})
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &domain.Project{Name: req.Name, ShortID: req.ShortID, Currency: req.Currency}
	if err := s.svc.Projects.Create(c.Request.Context(), p); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectDTO(p))
}

// project resolves the :id parameter, a short id or a full id. It writes
// the error response itself and returns nil on failure.
func (s *Server) project(c *gin.Context) *domain.Project {
	p, err := s.svc.Projects.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return nil
	}
	return p
}

func (s *Server) getProject(c *gin.Context) {
	if p := s.project(c); p != nil {
		c.JSON(http.StatusOK, toProjectDTO(p))
	}
}

func (s *Server) getTree(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	root, err := s.svc.Trees.Tree(c.Request.Context(), p.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project": toProjectDTO(p),
		"root":    toNodeDTO(root, domain.WBSCodes(root)),
	})
}

func (s *Server) getSummary(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	sum, err := s.svc.Trees.Summary(c.Request.Context(), p.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummaryDTO(sum))
}

func (s *Server) exportProject(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	format, err := importer.ParseFormat(c.DefaultQuery("format", string(importer.FormatJSON)))
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	var b strings.Builder
	if err := s.svc.Exports.Export(c.Request.Context(), p.ID, format, &b); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, p.DisplayID(), format))
	c.Data(http.StatusOK, contentType(format), []byte(b.String()))
}

func contentType(f importer.Format) string {
	switch f {
	case importer.FormatYAML:
		return "application/yaml"
	case importer.FormatTOML:
		return "application/toml"
	case importer.FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// mutationResponse returns the changed node together with the refreshed
// tree, since a single edit can move totals and dates all the way up.
func (s *Server) mutationResponse(c *gin.Context, status int, projectID string, n *domain.TreeNode) {
	root, err := s.svc.Trees.Tree(c.Request.Context(), projectID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	codes := domain.WBSCodes(root)
	body := gin.H{"root": toNodeDTO(root, codes)}
	if n != nil {
		if fresh := domain.Find(root, n.ID); fresh != nil {
			n = fresh
		}
		node := toNodeDTO(n, codes)
		node.Children = nil
		body["node"] = node
	}
	c.JSON(status, body)
}

func (s *Server) addChild(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	var req nodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(c, err)
		return
	}
	n, err := s.svc.Trees.AddChild(c.Request.Context(), p.ID, c.Param("nodeID"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.mutationResponse(c, http.StatusCreated, p.ID, n)
}

func (s *Server) updateNode(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.writeError(c, err)
		return
	}
	n, err := s.svc.Trees.UpdateNode(c.Request.Context(), p.ID, c.Param("nodeID"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.mutationResponse(c, http.StatusOK, p.ID, n)
}

func (s *Server) deleteNode(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	if err := s.svc.Trees.DeleteNode(c.Request.Context(), p.ID, c.Param("nodeID")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) validate(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := scheduler.ValidateInput{NodeID: req.NodeID, DependencyIDs: req.Dependencies}
	var err error
	if in.Start, err = parseDate("start", req.Start); err != nil {
		s.writeError(c, err)
		return
	}
	if in.End, err = parseDate("end", req.End); err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.svc.Trees.ValidateSchedule(c.Request.Context(), p.ID, in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// allocationResponse adds the running total to an allocation.
type allocationResponse struct {
	*budget.Allocation
	Cumulative []float64 `json:"cumulative"`
}

func (s *Server) allocation(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	req, err := s.allocationRequest(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	alloc, err := s.svc.Budget.Allocate(c.Request.Context(), p.ID, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse{Allocation: alloc, Cumulative: budget.Cumulative(alloc.Buckets)})
}

func (s *Server) allocationRequest(c *gin.Context) (budget.Request, error) {
	invalid := func(err error) (budget.Request, error) {
		return budget.Request{}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}

	period, err := budget.ParsePeriodType(c.DefaultQuery("period", string(budget.PeriodMonth)))
	if err != nil {
		return invalid(err)
	}
	mode, err := budget.ParseMode(c.Query("mode"))
	if err != nil {
		return invalid(err)
	}
	req := budget.Request{Period: period, Mode: mode, Now: s.now()}

	if raw := c.Query("levels"); raw != "" {
		if req.Levels, err = domain.ParseLevels(strings.Split(raw, ",")); err != nil {
			return invalid(err)
		}
	}

	from, to := c.Query("from"), c.Query("to")
	if (from == "") != (to == "") {
		return invalid(fmt.Errorf("from and to must be given together"))
	}
	if from != "" {
		f, err := parseDate("from", from)
		if err != nil {
			return budget.Request{}, err
		}
		t, err := parseDate("to", to)
		if err != nil {
			return budget.Request{}, err
		}
		req.Range = &budget.DateRange{From: *f, To: *t}
	}
	return req, nil
}

func (s *Server) progress(c *gin.Context) {
	p := s.project(c)
	if p == nil {
		return
	}
	nodeID := c.Param("nodeID")
	pct, err := s.svc.Trees.Progress(c.Request.Context(), p.ID, nodeID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodeId": nodeID, "progress": pct})
}
