package models

import (
	internalmodels "github.com/openmapping/tasking/internal/db/models"
)

// ProjectStatus is the publication state of a project
type ProjectStatus = internalmodels.ProjectStatus

// Project is a mapping project and its aggregate counters
type Project = internalmodels.Project

// User is a mapper or validator
type User = internalmodels.User
