package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Task templates and their ordered steps
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_name ON workflows(name);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			CREATE TABLE workflow_steps (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				step_order INT NOT NULL CHECK (step_order >= 1),
				name VARCHAR(255) NOT NULL,
				description TEXT,
				requires_approval BOOLEAN NOT NULL DEFAULT false,
				approver_role VARCHAR(255),
				default_assignee VARCHAR(255),
				PRIMARY KEY (workflow_id, id),
				UNIQUE (workflow_id, step_order)
			);

			CREATE INDEX idx_workflow_steps_workflow_id ON workflow_steps(workflow_id);
		`,
		2: `
			-- User directory
			CREATE TABLE users (
				id VARCHAR(255) PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				first_name VARCHAR(255),
				last_name VARCHAR(255),
				email VARCHAR(255)
			);

			CREATE INDEX idx_users_username ON users(username);
		`,
		3: `
			-- Tasks with their assignment channels
			CREATE TABLE tasks (
				id VARCHAR(255) PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				client_id VARCHAR(255),
				due_date TIMESTAMP WITH TIME ZONE,
				workflow_id VARCHAR(255),
				assigned_to VARCHAR(255),
				collaborators_info JSONB NOT NULL DEFAULT '[]',
				workflow_step_assignments JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_tasks_workflow_id ON tasks(workflow_id);
			CREATE INDEX idx_tasks_assigned_to ON tasks(assigned_to);
			CREATE INDEX idx_tasks_created_at ON tasks(created_at);
			CREATE INDEX idx_tasks_collaborators_info ON tasks USING GIN (collaborators_info);
		`,
	}
}
