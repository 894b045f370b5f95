package apitest

import (
	"net/http"
	"strings"

	"github.com/existflow/taskprox/internal/model"
	"github.com/labstack/echo/v4"
)

func (b *Backend) handleLogin(c echo.Context) error {
	var creds model.Credentials
	if err := decode(c, &creds); err != nil {
		return err
	}

	b.mu.Lock()
	acc := b.users[strings.ToLower(creds.Email)]
	b.mu.Unlock()
	if acc == nil || acc.password != creds.Password {
		return detail(c, http.StatusUnauthorized, "Credenciales inválidas")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"access_token": b.Token(acc.user.Email),
		"token_type":   "bearer",
	})
}

func (b *Backend) handleRegister(c echo.Context) error {
	var reg model.Registration
	if err := decode(c, &reg); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(reg.Email)
	if _, exists := b.users[key]; exists {
		return detail(c, http.StatusBadRequest, "El correo ya está registrado")
	}
	b.users[key] = &account{
		user: model.User{
			ID:         b.newID("u"),
			Email:      reg.Email,
			FirstName:  reg.FirstName,
			LastName:   reg.LastName,
			Address:    reg.Address,
			PostalCode: reg.PostalCode,
		},
		password: reg.Password,
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "Usuario registrado correctamente"})
}

func (b *Backend) handleForgot(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(c, &body); err != nil {
		return err
	}

	b.mu.Lock()
	_, ok := b.users[strings.ToLower(body.Email)]
	b.mu.Unlock()
	if !ok {
		return detail(c, http.StatusNotFound, "Usuario no encontrado")
	}
	return message(c, "Se ha enviado un correo para restablecer tu contraseña.")
}

// handleReset treats the reset token as the account email
func (b *Backend) handleReset(c echo.Context) error {
	var reset model.PasswordReset
	if err := decode(c, &reset); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.users[strings.ToLower(reset.Token)]
	if acc == nil {
		return detail(c, http.StatusBadRequest, "Token inválido o expirado")
	}
	acc.password = reset.Password
	return message(c, "Contraseña actualizada correctamente")
}

func (b *Backend) handleMe(c echo.Context) error {
	email, _ := caller(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, b.users[strings.ToLower(email)].user)
}

func (b *Backend) handleProfile(c echo.Context) error {
	var update model.ProfileUpdate
	if err := decode(c, &update); err != nil {
		return err
	}

	email, _ := caller(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &b.users[strings.ToLower(email)].user
	u.FirstName = update.FirstName
	u.LastName = update.LastName
	u.Address = update.Address
	u.PostalCode = update.PostalCode
	if update.ProfileImage != "" {
		u.ProfileImage = update.ProfileImage
	}
	return message(c, "Perfil actualizado correctamente")
}

func (b *Backend) handleDeleteAccount(c echo.Context) error {
	email, _ := caller(c)
	b.mu.Lock()
	delete(b.users, strings.ToLower(email))
	b.mu.Unlock()
	return message(c, "Cuenta eliminada correctamente")
}

func (b *Backend) handleListProjects(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Project, len(b.projects))
	copy(out, b.projects)
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleSummary(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.ProjectSummary, 0, len(b.projects))
	for _, p := range b.projects {
		s := model.ProjectSummary{Project: p}
		for _, t := range b.tasks {
			if t.ProjectID != p.ID {
				continue
			}
			s.Total++
			if t.IsDone() {
				s.Completed++
			}
		}
		out = append(out, s)
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) projectIndex(id string) int {
	for i, p := range b.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) handleGetProject(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.projectIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Proyecto con id "+c.Param("id")+" no encontrado")
	}
	return c.JSON(http.StatusOK, b.projects[i])
}

func (b *Backend) handleCreateProject(c echo.Context) error {
	var p model.Project
	if err := decode(c, &p); err != nil {
		return err
	}
	email, _ := caller(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.newID("p")
	if p.UserEmail == "" {
		p.UserEmail = email
	}
	b.projects = append(b.projects, p)
	return c.JSON(http.StatusOK, p)
}

func (b *Backend) handleUpdateProject(c echo.Context) error {
	var p model.Project
	if err := decode(c, &p); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.projectIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Proyecto con id "+c.Param("id")+" no encontrado")
	}
	p.ID = b.projects[i].ID
	if p.UserEmail == "" {
		p.UserEmail = b.projects[i].UserEmail
	}
	b.projects[i] = p
	return c.JSON(http.StatusOK, p)
}

func (b *Backend) handleDeleteProject(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.projectIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Proyecto con id "+c.Param("id")+" no encontrado")
	}
	b.projects = append(b.projects[:i], b.projects[i+1:]...)
	return message(c, "Proyecto eliminado")
}

func visibleTo(t model.Task, email string) bool {
	if strings.EqualFold(t.Creator, email) {
		return true
	}
	for _, col := range t.Collaborators {
		if strings.EqualFold(strings.TrimSpace(col.Email), email) {
			return true
		}
	}
	return false
}

func (b *Backend) handleListTasks(c echo.Context) error {
	email, _ := caller(c)
	q := c.QueryParams()

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []model.Task{}
	for _, t := range b.tasks {
		if !visibleTo(t, email) {
			continue
		}
		if v := q.Get("projectId"); v != "" && t.ProjectID != v {
			continue
		}
		if v := q.Get("title"); v != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(v)) {
			continue
		}
		if v := q.Get("creator"); v != "" && !strings.EqualFold(t.Creator, v) {
			continue
		}
		if v := q.Get("status"); v != "" && t.Status.String() != model.ParseStatus(v).String() {
			continue
		}
		if q.Get("hasRecurso") == "true" && len(t.Recurso) == 0 {
			continue
		}
		out = append(out, t)
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) handleTasksByProject(c echo.Context) error {
	email, _ := caller(c)
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []model.Task{}
	for _, t := range b.tasks {
		if t.ProjectID == c.Param("id") && visibleTo(t, email) {
			out = append(out, t)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) taskIndex(id string) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) handleGetTask(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.taskIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Tarea con id "+c.Param("id")+" no encontrada")
	}
	return c.JSON(http.StatusOK, b.tasks[i])
}

func (b *Backend) handleCreateTask(c echo.Context) error {
	var t model.Task
	if err := decode(c, &t); err != nil {
		return err
	}
	email, name := caller(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	t.ID = b.newID("t")
	if t.Creator == "" {
		t.Creator = email
		t.CreatorName = name
	}
	b.tasks = append(b.tasks, t)
	return c.JSON(http.StatusOK, t)
}

func (b *Backend) handleUpdateTask(c echo.Context) error {
	var t model.Task
	if err := decode(c, &t); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.taskIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Tarea con id "+c.Param("id")+" no encontrada")
	}
	t.ID = b.tasks[i].ID
	t.Creator = b.tasks[i].Creator
	t.CreatorName = b.tasks[i].CreatorName
	b.tasks[i] = t
	return c.JSON(http.StatusOK, t)
}

func (b *Backend) handleTaskStatus(c echo.Context) error {
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := decode(c, &body); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.taskIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Tarea con id "+c.Param("id")+" no encontrada")
	}
	b.tasks[i].Status = body.Status
	b.tasks[i].Completed = body.Status.IsDone()
	return c.JSON(http.StatusOK, b.tasks[i])
}

func (b *Backend) handleDeleteTask(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.taskIndex(c.Param("id"))
	if i < 0 {
		return detail(c, http.StatusNotFound, "Tarea con id "+c.Param("id")+" no encontrada")
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	return message(c, "Tarea eliminada correctamente")
}
